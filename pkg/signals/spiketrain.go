package signals

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SpikeTrain is the sorted sequence of spike times (ms) emitted by one source
// within [t_start, t_stop].
type SpikeTrain struct {
	times  []float64
	tStart float64
	tStop  float64
}

// NewSpikeTrain validates and sorts times. Missing bounds are inferred as 0 and
// max(times). When a bound is given explicitly, spikes outside the closed
// interval [t_start, t_stop] are dropped.
func NewSpikeTrain(times []float64, opts ...Option) (*SpikeTrain, error) {
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: spike %d is not a number (%v)", ErrInvalidSpikeTime, i, t)
		}
		if t < 0 {
			return nil, fmt.Errorf("%w: spike %d is negative (%v)", ErrInvalidSpikeTime, i, t)
		}
	}

	sorted := slices.Clone(times)
	slices.Sort(sorted)

	b := collectBounds(opts)
	tStart := 0.0
	if b.tStart != nil {
		tStart = *b.tStart
	}
	tStop := tStart
	if b.tStop != nil {
		tStop = *b.tStop
	} else if len(sorted) > 0 {
		tStop = sorted[len(sorted)-1]
	}

	if err := validateBounds(tStart, tStop); err != nil {
		return nil, err
	}

	if b.tStart != nil || b.tStop != nil {
		lo := sort.SearchFloat64s(sorted, tStart)
		hi := upperBound(sorted, tStop)
		sorted = sorted[lo:hi]
	}

	return &SpikeTrain{times: sorted, tStart: tStart, tStop: tStop}, nil
}

// MustSpikeTrain is NewSpikeTrain for literals known to be valid.
func MustSpikeTrain(times []float64, opts ...Option) *SpikeTrain {
	st, err := NewSpikeTrain(times, opts...)
	if err != nil {
		panic(err)
	}
	return st
}

// newTrain wraps already sorted, in-bounds times without copying.
func newTrain(sorted []float64, tStart, tStop float64) *SpikeTrain {
	return &SpikeTrain{times: sorted, tStart: tStart, tStop: tStop}
}

func validateBounds(tStart, tStop float64) error {
	if math.IsNaN(tStart) || math.IsInf(tStart, 0) || math.IsNaN(tStop) || math.IsInf(tStop, 0) {
		return fmt.Errorf("%w: t_start=%v t_stop=%v", ErrInvalidBounds, tStart, tStop)
	}
	if tStart < 0 {
		return fmt.Errorf("%w: t_start %v is negative", ErrInvalidBounds, tStart)
	}
	if tStart > tStop {
		return fmt.Errorf("%w: t_start %v > t_stop %v", ErrInvalidBounds, tStart, tStop)
	}
	return nil
}

// upperBound returns the index of the first element greater than x.
func upperBound(sorted []float64, x float64) int {
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] > x })
}

func (st *SpikeTrain) TStart() float64 { return st.tStart }
func (st *SpikeTrain) TStop() float64  { return st.tStop }
func (st *SpikeTrain) Len() int        { return len(st.times) }

// Duration is t_stop - t_start.
func (st *SpikeTrain) Duration() float64 { return st.tStop - st.tStart }

// Times returns a copy of the sorted spike times.
func (st *SpikeTrain) Times() []float64 { return slices.Clone(st.times) }

// FirstSpikeTime returns the earliest spike, ok is false for an empty train.
func (st *SpikeTrain) FirstSpikeTime() (float64, bool) {
	if len(st.times) == 0 {
		return 0, false
	}
	return st.times[0], true
}

// LastSpikeTime returns the latest spike, ok is false for an empty train.
func (st *SpikeTrain) LastSpikeTime() (float64, bool) {
	if len(st.times) == 0 {
		return 0, false
	}
	return st.times[len(st.times)-1], true
}

func (st *SpikeTrain) Copy() *SpikeTrain {
	return newTrain(slices.Clone(st.times), st.tStart, st.tStop)
}

// Equal reports whether both trains have the same bounds and spike times.
func (st *SpikeTrain) Equal(other *SpikeTrain) bool {
	if other == nil {
		return false
	}
	return st.tStart == other.tStart && st.tStop == other.tStop && slices.Equal(st.times, other.times)
}

func (st *SpikeTrain) String() string {
	return fmt.Sprintf("SpikeTrain(n=%d, t_start=%g, t_stop=%g)", len(st.times), st.tStart, st.tStop)
}

// Merge adds the spikes of other to st, keeping duplicates, and widens the
// bounds to cover both trains.
func (st *SpikeTrain) Merge(other *SpikeTrain) {
	if other == nil {
		return
	}
	merged := make([]float64, 0, len(st.times)+len(other.times))
	i, j := 0, 0
	for i < len(st.times) && j < len(other.times) {
		if st.times[i] <= other.times[j] {
			merged = append(merged, st.times[i])
			i++
		} else {
			merged = append(merged, other.times[j])
			j++
		}
	}
	merged = append(merged, st.times[i:]...)
	merged = append(merged, other.times[j:]...)

	st.times = merged
	st.tStart = math.Min(st.tStart, other.tStart)
	st.tStop = math.Max(st.tStop, other.tStop)
}

// TimeOffset shifts the bounds and every spike by offset.
func (st *SpikeTrain) TimeOffset(offset float64) error {
	if st.tStart+offset < 0 {
		return fmt.Errorf("%w: offset %v moves t_start below zero", ErrInvalidBounds, offset)
	}
	st.tStart += offset
	st.tStop += offset
	floats.AddConst(offset, st.times)
	return nil
}

// TimeSlice returns the spikes in [tMin, tMax). The new bounds are the
// requested ones clamped to the train's own bounds.
func (st *SpikeTrain) TimeSlice(tMin, tMax float64) *SpikeTrain {
	lo := math.Max(tMin, st.tStart)
	hi := math.Min(tMax, st.tStop)
	if hi < lo {
		return newTrain(nil, lo, lo)
	}
	i := sort.SearchFloat64s(st.times, lo)
	j := sort.SearchFloat64s(st.times, hi)
	return newTrain(slices.Clone(st.times[i:j]), lo, hi)
}

// ISI returns the inter-spike intervals.
func (st *SpikeTrain) ISI() []float64 {
	if len(st.times) < 2 {
		return nil
	}
	isi := make([]float64, len(st.times)-1)
	for i := range isi {
		isi[i] = st.times[i+1] - st.times[i]
	}
	return isi
}

// MeanRate is the spike count over the duration, in Hz.
func (st *SpikeTrain) MeanRate() float64 {
	d := st.Duration()
	if d <= 0 {
		return 0
	}
	return 1000 * float64(len(st.times)) / d
}

// CVISI is the coefficient of variation of the ISIs (population std / mean).
// Trains with fewer than two spikes give 0.
func (st *SpikeTrain) CVISI() float64 {
	isi := st.ISI()
	if len(isi) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(isi, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// FanoFactorISI is var/mean of the ISIs, 0 with fewer than two spikes.
func (st *SpikeTrain) FanoFactorISI() float64 {
	isi := st.ISI()
	if len(isi) == 0 {
		return 0
	}
	mean, variance := stat.PopMeanVariance(isi, nil)
	if mean == 0 {
		return 0
	}
	return variance / mean
}

// numBins is the number of binWidth bins needed to cover [tStart, tStop].
func numBins(tStart, tStop, binWidth float64) int {
	d := tStop - tStart
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d/binWidth - 1e-9))
}

// TimeAxis returns the bin edges covering [t_start, t_stop].
func (st *SpikeTrain) TimeAxis(binWidth float64) ([]float64, error) {
	if binWidth <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinWidth, binWidth)
	}
	n := numBins(st.tStart, st.tStop, binWidth)
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = st.tStart + float64(i)*binWidth
	}
	return edges, nil
}

// TimeHistogram yields the spike count of each bin over [t_start, t_stop].
// Bins are half-open except the last, which also counts spikes at t_stop.
// The sequence holds no state and can be ranged over repeatedly.
func (st *SpikeTrain) TimeHistogram(binWidth float64) (iter.Seq[int], error) {
	if binWidth <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinWidth, binWidth)
	}
	return binCounts(st.times, st.tStart, st.tStop, binWidth), nil
}

func binCounts(times []float64, tStart, tStop, binWidth float64) iter.Seq[int] {
	return func(yield func(int) bool) {
		n := numBins(tStart, tStop, binWidth)
		j := sort.SearchFloat64s(times, tStart)
		for i := 0; i < n; i++ {
			edge := tStart + float64(i+1)*binWidth
			last := i == n-1
			count := 0
			for j < len(times) && (times[j] < edge || (last && times[j] <= tStop)) {
				count++
				j++
			}
			if !yield(count) {
				return
			}
		}
	}
}

// Histogram materializes TimeHistogram. With normalized set the counts are
// converted to rates in Hz.
func (st *SpikeTrain) Histogram(binWidth float64, normalized bool) ([]float64, error) {
	if binWidth <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinWidth, binWidth)
	}
	return histogram(st.times, st.tStart, st.tStop, binWidth, normalized), nil
}

func histogram(times []float64, tStart, tStop, binWidth float64, normalized bool) []float64 {
	out := make([]float64, 0, numBins(tStart, tStop, binWidth))
	for c := range binCounts(times, tStart, tStop, binWidth) {
		out = append(out, float64(c))
	}
	if normalized {
		floats.Scale(1000/binWidth, out)
	}
	return out
}

// Bursts groups spikes separated by no more than maxISI into session windows.
func (st *SpikeTrain) Bursts(maxISI float64) []Window {
	return CreateSessionWindows(st.times, maxISI)
}

// DistanceVictorPurpura is the Victor-Purpura spike time distance with
// cost per ms of shifting a spike.
func (st *SpikeTrain) DistanceVictorPurpura(other *SpikeTrain, cost float64) float64 {
	a, b := st.times, other.times
	if cost == 0 {
		return math.Abs(float64(len(a) - len(b)))
	}
	if math.IsInf(cost, 1) {
		return float64(len(a) + len(b))
	}

	prev := make([]float64, len(b)+1)
	curr := make([]float64, len(b)+1)
	for j := range prev {
		prev[j] = float64(j)
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = float64(i)
		for j := 1; j <= len(b); j++ {
			curr[j] = min(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost*math.Abs(a[i-1]-b[j-1]),
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
