package analysis

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// Pair names one train of the first list and one of the second.
type Pair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// PairSelector picks up to n pairs of identifiers from two spike lists.
type PairSelector interface {
	Select(a, b *signals.SpikeList, n int) ([]Pair, error)
}

// AutoPairs pairs every identifier present in both lists with itself, in
// ascending order. n <= 0 selects all of them.
type AutoPairs struct{}

func (AutoPairs) Select(a, b *signals.SpikeList, n int) ([]Pair, error) {
	var pairs []Pair
	for _, id := range a.IDs() {
		if _, ok := b.Train(id); !ok {
			continue
		}
		pairs = append(pairs, Pair{A: id, B: id})
		if n > 0 && len(pairs) == n {
			break
		}
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no identifier shared by both lists", ErrInvalidPairs)
	}
	return pairs, nil
}

// RandomPairs draws n pairs uniformly, with replacement. NoSilent restricts
// the draw to trains with at least one spike and NoAuto rejects pairs of an
// identifier with itself.
type RandomPairs struct {
	Rng      *rand.Rand
	NoSilent bool
	NoAuto   bool
}

func (r RandomPairs) Select(a, b *signals.SpikeList, n int) ([]Pair, error) {
	if r.Rng == nil {
		return nil, fmt.Errorf("random pairs: %w", ErrNoRandomSource)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d pairs requested", ErrInvalidPairs, n)
	}
	idsA, idsB := r.candidates(a), r.candidates(b)
	if len(idsA) == 0 || len(idsB) == 0 {
		return nil, fmt.Errorf("%w: no candidate trains", ErrInvalidPairs)
	}
	if r.NoAuto && len(idsA) == 1 && len(idsB) == 1 && idsA[0] == idsB[0] {
		return nil, fmt.Errorf("%w: only auto pairs available", ErrInvalidPairs)
	}

	pairs := make([]Pair, 0, n)
	for len(pairs) < n {
		p := Pair{A: idsA[r.Rng.IntN(len(idsA))], B: idsB[r.Rng.IntN(len(idsB))]}
		if r.NoAuto && p.A == p.B {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func (r RandomPairs) candidates(sl *signals.SpikeList) []int {
	if !r.NoSilent {
		return sl.IDs()
	}
	return sl.SelectIDs(func(_ int, st *signals.SpikeTrain) bool { return st.Len() > 0 })
}

// CustomPairs is a fixed list of pairs. The first n are used when n > 0.
type CustomPairs []Pair

func (c CustomPairs) Select(a, b *signals.SpikeList, n int) ([]Pair, error) {
	pairs := []Pair(c)
	if n > 0 && n < len(pairs) {
		pairs = pairs[:n]
	}
	for _, p := range pairs {
		_, okA := a.Train(p.A)
		_, okB := b.Train(p.B)
		if !okA || !okB {
			return nil, fmt.Errorf("%w: pair %d-%d not in lists", ErrInvalidPairs, p.A, p.B)
		}
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: empty pair list", ErrInvalidPairs)
	}
	return slices.Clone(pairs), nil
}

// PairwiseCCZero is the mean zero-lag coincidence of the selected pairs.
// Spike counts are binarized per timeBin over the time range both lists
// share; the coincidence of a pair is the number of bins occupied in both
// trains over the geometric mean of bins occupied in each. Pairs where a
// train is silent count as 0. The result lies in [0, 1].
func PairwiseCCZero(a, b *signals.SpikeList, selector PairSelector, nPairs int, timeBin float64) (float64, error) {
	t0, t1, err := sharedRange(a, b, timeBin)
	if err != nil {
		return 0, err
	}
	pairs, err := selector.Select(a, b, nPairs)
	if err != nil {
		return 0, err
	}
	return ccZero(a, b, pairs, t0, t1, timeBin), nil
}

// PairwiseCCZeroWindowed computes PairwiseCCZero in consecutive windows of
// windowSize ms, with the same pairs in every window.
func PairwiseCCZeroWindowed(a, b *signals.SpikeList, selector PairSelector, nPairs int, timeBin, windowSize float64) ([]signals.WindowedValue, error) {
	t0, t1, err := sharedRange(a, b, timeBin)
	if err != nil {
		return nil, err
	}
	if !(windowSize >= timeBin) {
		return nil, fmt.Errorf("%w: window %v shorter than bin %v", ErrInvalidBinWidth, windowSize, timeBin)
	}
	pairs, err := selector.Select(a, b, nPairs)
	if err != nil {
		return nil, err
	}

	windows := signals.CreateTumblingWindows(t0, t1, windowSize)
	out := make([]signals.WindowedValue, len(windows))
	for i, w := range windows {
		out[i] = signals.WindowedValue{
			Window: w,
			Value:  ccZero(a, b, pairs, w.Start, w.End, timeBin),
			Count:  len(pairs),
		}
	}
	return out, nil
}

func ccZero(a, b *signals.SpikeList, pairs []Pair, t0, t1, timeBin float64) float64 {
	total := 0.0
	for _, p := range pairs {
		x := occupied(a, p.A, t0, t1, timeBin)
		y := occupied(b, p.B, t0, t1, timeBin)
		nx, ny, both := 0, 0, 0
		for i := range x {
			if x[i] {
				nx++
			}
			if y[i] {
				ny++
			}
			if x[i] && y[i] {
				both++
			}
		}
		if nx > 0 && ny > 0 {
			total += float64(both) / math.Sqrt(float64(nx)*float64(ny))
		}
	}
	return total / float64(len(pairs))
}

func occupied(sl *signals.SpikeList, id int, t0, t1, timeBin float64) []bool {
	counts := binnedCounts(sl, id, t0, t1, timeBin)
	out := make([]bool, len(counts))
	for i, c := range counts {
		out[i] = c > 0
	}
	return out
}

func binnedCounts(sl *signals.SpikeList, id int, t0, t1, timeBin float64) []float64 {
	st, _ := sl.Train(id)
	counts, _ := st.TimeSlice(t0, t1).Histogram(timeBin, false)
	return counts
}

// sharedRange is the time range covered by both lists.
func sharedRange(a, b *signals.SpikeList, timeBin float64) (float64, float64, error) {
	if a == nil || b == nil {
		return 0, 0, signals.ErrNilTrain
	}
	if !(timeBin > 0) {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidBinWidth, timeBin)
	}
	t0 := max(a.TStart(), b.TStart())
	t1 := min(a.TStop(), b.TStop())
	if t1 <= t0 {
		return 0, 0, fmt.Errorf("%w: lists do not overlap in time", ErrEmptyInput)
	}
	return t0, t1, nil
}

// PairwisePearson returns the mean and population standard deviation of the
// Pearson correlation between binned spike counts of the selected pairs.
// Pairs where either train has constant counts are skipped; with no usable
// pair both results are 0.
func PairwisePearson(a, b *signals.SpikeList, selector PairSelector, nPairs int, timeBin float64) (float64, float64, error) {
	t0, t1, err := sharedRange(a, b, timeBin)
	if err != nil {
		return 0, 0, err
	}
	pairs, err := selector.Select(a, b, nPairs)
	if err != nil {
		return 0, 0, err
	}

	coefficients := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		x := binnedCounts(a, p.A, t0, t1, timeBin)
		y := binnedCounts(b, p.B, t0, t1, timeBin)
		if len(x) < 2 || stat.PopVariance(x, nil) == 0 || stat.PopVariance(y, nil) == 0 {
			continue
		}
		coefficients = append(coefficients, stat.Correlation(x, y, nil))
	}
	if len(coefficients) == 0 {
		return 0, 0, nil
	}
	return stat.Mean(coefficients, nil), stat.PopStdDev(coefficients, nil), nil
}
