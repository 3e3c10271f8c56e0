package signals

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Spike is one (identifier, time) event.
type Spike struct {
	ID   int     `json:"id"`
	Time float64 `json:"time"`
}

// SpikeList maps source identifiers to spike trains sharing t_start and t_stop.
type SpikeList struct {
	trains map[int]*SpikeTrain
	tStart float64
	tStop  float64
}

// NewSpikeList groups (id, time) events into trains. If ids is non-nil it is
// the identifier set: ids without events get empty trains and events for other
// ids are dropped. Bounds default to 0 and the latest spike.
func NewSpikeList(spikes []Spike, ids []int, opts ...Option) (*SpikeList, error) {
	byID := make(map[int][]float64)
	if ids != nil {
		for _, id := range ids {
			byID[id] = nil
		}
	}
	latest := 0.0
	for _, s := range spikes {
		if _, ok := byID[s.ID]; !ok && ids != nil {
			continue
		}
		byID[s.ID] = append(byID[s.ID], s.Time)
		latest = max(latest, s.Time)
	}

	b := collectBounds(opts)
	tStart, tStop := 0.0, latest
	if b.tStart != nil {
		tStart = *b.tStart
		tStop = max(latest, tStart)
	}
	if b.tStop != nil {
		tStop = *b.tStop
	}
	if err := validateBounds(tStart, tStop); err != nil {
		return nil, err
	}

	sl := &SpikeList{trains: make(map[int]*SpikeTrain, len(byID)), tStart: tStart, tStop: tStop}
	for id, times := range byID {
		st, err := NewSpikeTrain(times, WithBounds(tStart, tStop))
		if err != nil {
			return nil, fmt.Errorf("id %d: %w", id, err)
		}
		sl.trains[id] = st
	}
	return sl, nil
}

// FromTrains builds a list from existing trains. Bounds default to the union
// of the trains' bounds; trains are clamped to the list bounds.
func FromTrains(trains map[int]*SpikeTrain, opts ...Option) (*SpikeList, error) {
	tStart, tStop := math.Inf(1), math.Inf(-1)
	for id, st := range trains {
		if st == nil {
			return nil, fmt.Errorf("id %d: %w", id, ErrNilTrain)
		}
		tStart = min(tStart, st.tStart)
		tStop = max(tStop, st.tStop)
	}
	if len(trains) == 0 {
		tStart, tStop = 0, 0
	}

	b := collectBounds(opts)
	if b.tStart != nil {
		tStart = *b.tStart
	}
	if b.tStop != nil {
		tStop = *b.tStop
	}
	if err := validateBounds(tStart, tStop); err != nil {
		return nil, err
	}

	sl := &SpikeList{trains: make(map[int]*SpikeTrain, len(trains)), tStart: tStart, tStop: tStop}
	for id, st := range trains {
		sl.trains[id] = sl.clamp(st)
	}
	return sl, nil
}

// clamp copies st restricted to the closed list interval.
func (sl *SpikeList) clamp(st *SpikeTrain) *SpikeTrain {
	lo := sort.SearchFloat64s(st.times, sl.tStart)
	hi := max(upperBound(st.times, sl.tStop), lo)
	return newTrain(slices.Clone(st.times[lo:hi]), sl.tStart, sl.tStop)
}

func (sl *SpikeList) TStart() float64 { return sl.tStart }
func (sl *SpikeList) TStop() float64  { return sl.tStop }
func (sl *SpikeList) Len() int        { return len(sl.trains) }

// Duration is t_stop - t_start.
func (sl *SpikeList) Duration() float64 { return sl.tStop - sl.tStart }

// IDs returns the identifiers in ascending order.
func (sl *SpikeList) IDs() []int {
	return slices.Sorted(maps.Keys(sl.trains))
}

// Train returns the train for id.
func (sl *SpikeList) Train(id int) (*SpikeTrain, bool) {
	st, ok := sl.trains[id]
	return st, ok
}

func (sl *SpikeList) String() string {
	return fmt.Sprintf("SpikeList(n=%d, t_start=%g, t_stop=%g)", len(sl.trains), sl.tStart, sl.tStop)
}

// Set stores a copy of st under id, replacing any existing train. An empty
// list adopts the bounds of its first train.
func (sl *SpikeList) Set(id int, st *SpikeTrain) error {
	if st == nil {
		return fmt.Errorf("id %d: %w", id, ErrNilTrain)
	}
	if len(sl.trains) == 0 && sl.tStart == sl.tStop {
		sl.tStart, sl.tStop = st.tStart, st.tStop
	}
	sl.trains[id] = sl.clamp(st)
	return nil
}

// Append stores st under a new id. An existing id is an error.
func (sl *SpikeList) Append(id int, st *SpikeTrain) error {
	if _, ok := sl.trains[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	return sl.Set(id, st)
}

// Merge adds the trains of other to sl in place and widens the list bounds;
// every member train takes the widened bounds. Any overlapping identifier
// fails the whole merge and sl is left unchanged.
func (sl *SpikeList) Merge(other *SpikeList) error {
	if other == nil {
		return ErrNilTrain
	}
	for id := range other.trains {
		if _, ok := sl.trains[id]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
	}
	if len(sl.trains) == 0 && sl.tStart == sl.tStop {
		sl.tStart, sl.tStop = other.tStart, other.tStop
	} else {
		sl.tStart = min(sl.tStart, other.tStart)
		sl.tStop = max(sl.tStop, other.tStop)
	}
	for id, st := range sl.trains {
		sl.trains[id] = sl.clamp(st)
	}
	for id, st := range other.trains {
		sl.trains[id] = sl.clamp(st)
	}
	return nil
}

// Copy returns a deep copy.
func (sl *SpikeList) Copy() *SpikeList {
	out := &SpikeList{trains: make(map[int]*SpikeTrain, len(sl.trains)), tStart: sl.tStart, tStop: sl.tStop}
	for id, st := range sl.trains {
		out.trains[id] = st.Copy()
	}
	return out
}

// IDSlice returns a new list with the given identifiers. Identifiers not in
// the list are skipped.
func (sl *SpikeList) IDSlice(ids ...int) *SpikeList {
	out := &SpikeList{trains: make(map[int]*SpikeTrain, len(ids)), tStart: sl.tStart, tStop: sl.tStop}
	for _, id := range ids {
		if st, ok := sl.trains[id]; ok {
			out.trains[id] = st.Copy()
		}
	}
	return out
}

// RandomIDSlice returns a new list with n identifiers drawn without
// replacement using rng.
func (sl *SpikeList) RandomIDSlice(n int, rng *rand.Rand) *SpikeList {
	ids := sl.IDs()
	if n >= len(ids) {
		return sl.IDSlice(ids...)
	}
	perm := rng.Perm(len(ids))
	picked := make([]int, max(n, 0))
	for i := range picked {
		picked[i] = ids[perm[i]]
	}
	return sl.IDSlice(picked...)
}

// TimeSlice restricts every train to [tMin, tMax) clamped to the list bounds.
func (sl *SpikeList) TimeSlice(tMin, tMax float64) *SpikeList {
	lo := max(tMin, sl.tStart)
	hi := max(min(tMax, sl.tStop), lo)
	out := &SpikeList{trains: make(map[int]*SpikeTrain, len(sl.trains)), tStart: lo, tStop: hi}
	for id, st := range sl.trains {
		sliced := st.TimeSlice(lo, hi)
		sliced.tStart, sliced.tStop = lo, hi
		out.trains[id] = sliced
	}
	return out
}

// TimeOffset shifts every train and the list bounds by offset.
func (sl *SpikeList) TimeOffset(offset float64) error {
	if sl.tStart+offset < 0 {
		return fmt.Errorf("%w: offset %v moves t_start below zero", ErrInvalidBounds, offset)
	}
	for _, st := range sl.trains {
		if err := st.TimeOffset(offset); err != nil {
			return err
		}
	}
	sl.tStart += offset
	sl.tStop += offset
	return nil
}

// IDOffset adds offset to every identifier.
func (sl *SpikeList) IDOffset(offset int) {
	shifted := make(map[int]*SpikeTrain, len(sl.trains))
	for id, st := range sl.trains {
		shifted[id+offset] = st
	}
	sl.trains = shifted
}

// FirstSpikeTime is the earliest spike over all trains.
func (sl *SpikeList) FirstSpikeTime() (float64, bool) {
	first, found := math.Inf(1), false
	for _, st := range sl.trains {
		if t, ok := st.FirstSpikeTime(); ok {
			first, found = min(first, t), true
		}
	}
	if !found {
		return 0, false
	}
	return first, true
}

// LastSpikeTime is the latest spike over all trains.
func (sl *SpikeList) LastSpikeTime() (float64, bool) {
	last, found := math.Inf(-1), false
	for _, st := range sl.trains {
		if t, ok := st.LastSpikeTime(); ok {
			last, found = max(last, t), true
		}
	}
	if !found {
		return 0, false
	}
	return last, true
}

// TotalSpikes counts spikes over all trains.
func (sl *SpikeList) TotalSpikes() int {
	n := 0
	for _, st := range sl.trains {
		n += st.Len()
	}
	return n
}

// MeanRates returns the rate (Hz) of each train over the list duration, in
// identifier order.
func (sl *SpikeList) MeanRates() []float64 {
	return sl.perTrain(func(st *SpikeTrain) float64 {
		if sl.Duration() <= 0 {
			return 0
		}
		return 1000 * float64(st.Len()) / sl.Duration()
	})
}

// MeanRate is the population mean of MeanRates.
func (sl *SpikeList) MeanRate() float64 {
	rates := sl.MeanRates()
	if len(rates) == 0 {
		return 0
	}
	return stat.Mean(rates, nil)
}

// MeanRateStd is the population standard deviation of MeanRates.
func (sl *SpikeList) MeanRateStd() float64 {
	rates := sl.MeanRates()
	if len(rates) == 0 {
		return 0
	}
	return stat.PopStdDev(rates, nil)
}

// CVISI returns CVISI of each train in identifier order.
func (sl *SpikeList) CVISI() []float64 {
	return sl.perTrain((*SpikeTrain).CVISI)
}

func (sl *SpikeList) perTrain(f func(*SpikeTrain) float64) []float64 {
	ids := sl.IDs()
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = f(sl.trains[id])
	}
	return out
}

// Aggregate applies statistic to every train and reduces the results.
func (sl *SpikeList) Aggregate(statistic func(*SpikeTrain) float64, aggType AggregationType, percentile float64) (AggregationResult, error) {
	return Aggregate(sl.perTrain(statistic), aggType, percentile)
}

// SpikeHistogram returns one row of bin counts per identifier (ascending),
// all binned over the list bounds.
func (sl *SpikeList) SpikeHistogram(binWidth float64, normalized bool) ([][]float64, error) {
	if binWidth <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinWidth, binWidth)
	}
	ids := sl.IDs()
	rows := make([][]float64, len(ids))
	for i, id := range ids {
		rows[i] = histogram(sl.trains[id].times, sl.tStart, sl.tStop, binWidth, normalized)
	}
	return rows, nil
}

// FiringRate is the population-averaged rate (Hz) in each bin.
func (sl *SpikeList) FiringRate(binWidth float64) ([]float64, error) {
	rows, err := sl.SpikeHistogram(binWidth, true)
	if err != nil {
		return nil, err
	}
	rate := make([]float64, numBins(sl.tStart, sl.tStop, binWidth))
	if len(rows) == 0 {
		return rate, nil
	}
	for _, row := range rows {
		for i, v := range row {
			rate[i] += v
		}
	}
	for i := range rate {
		rate[i] /= float64(len(rows))
	}
	return rate, nil
}

// WindowedRates returns the population rate (Hz) inside each window.
func (sl *SpikeList) WindowedRates(windows []Window) []WindowedValue {
	out := make([]WindowedValue, 0, len(windows))
	for _, w := range windows {
		count := 0
		for _, st := range sl.trains {
			count += st.TimeSlice(w.Start, w.End).Len()
		}
		value := 0.0
		if d := w.Duration(); d > 0 && len(sl.trains) > 0 {
			value = 1000 * float64(count) / d / float64(len(sl.trains))
		}
		out = append(out, WindowedValue{Window: w, Value: value, Count: count})
	}
	return out
}

// SelectIDs returns, in ascending order, the identifiers whose train
// satisfies pred.
func (sl *SpikeList) SelectIDs(pred func(id int, st *SpikeTrain) bool) []int {
	var ids []int
	for _, id := range sl.IDs() {
		if pred(id, sl.trains[id]) {
			ids = append(ids, id)
		}
	}
	return ids
}

// RawData flattens the list into events ordered by time, then identifier.
func (sl *SpikeList) RawData() []Spike {
	out := make([]Spike, 0, sl.TotalSpikes())
	for id, st := range sl.trains {
		for _, t := range st.times {
			out = append(out, Spike{ID: id, Time: t})
		}
	}
	slices.SortFunc(out, func(a, b Spike) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
