package analysis

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// CrossCorrelateOptions configures CrossCorrelate.
type CrossCorrelateOptions struct {
	// Lag bounds the differences to the open interval (-Lag, Lag). Zero picks
	// a default from the inter-spike intervals of the shorter train.
	Lag float64
	// Shuffle builds a predictor from NPred surrogates of the longer train
	// with shuffled inter-spike intervals. Rng must then be set.
	Shuffle bool
	NPred   int
	Rng     *rand.Rand
}

// CrossCorrelation holds the pooled spike-time differences of two trains.
// Positive differences mean events of the second train lead the first.
type CrossCorrelation struct {
	Lag       float64   `json:"lag"`
	Diffs     []float64 `json:"diffs"`
	Predictor []float64 `json:"predictor,omitempty"`
	NPred     int       `json:"n_pred,omitempty"`
	// Norm scales bin counts to correlation coefficients.
	Norm float64 `json:"norm"`
}

// CrossCorrelate collects a_time - b_time for every pair of events closer
// than the lag. The shorter train is the reference; the default lag is
// ceil(10 * mean ISI of a) when a is shorter, otherwise ceil(20 * mean ISI
// of b). An empty reference train gives an empty result.
func CrossCorrelate(a, b *signals.SpikeTrain, opts CrossCorrelateOptions) (*CrossCorrelation, error) {
	if a == nil || b == nil {
		return nil, signals.ErrNilTrain
	}
	if opts.Lag < 0 || math.IsNaN(opts.Lag) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLag, opts.Lag)
	}
	if opts.Shuffle && opts.Rng == nil {
		return nil, fmt.Errorf("shuffle predictor: %w", ErrNoRandomSource)
	}

	ref, other := a.Times(), b.Times()
	reverse := false
	lag := opts.Lag
	if len(ref) < len(other) {
		if lag == 0 {
			lag = defaultLag(ref, 10)
		}
	} else {
		if lag == 0 {
			lag = defaultLag(other, 20)
		}
		ref, other = other, ref
		reverse = true
	}
	if len(ref) == 0 {
		return &CrossCorrelation{Lag: lag, Diffs: []float64{}}, nil
	}
	if lag == 0 {
		return nil, fmt.Errorf("%w: default lag needs two spikes with distinct times", ErrTooFewSpikes)
	}

	cc := &CrossCorrelation{
		Lag:  lag,
		Norm: math.Sqrt(float64(len(ref)) * float64(len(other))),
	}
	cc.Diffs = differences(ref, other, lag, nil)

	if opts.Shuffle {
		cc.NPred = max(opts.NPred, 1)
		for range cc.NPred {
			cc.Predictor = differences(ref, shuffled(other, opts.Rng), lag, cc.Predictor)
		}
	}

	if reverse {
		negate(cc.Diffs)
		negate(cc.Predictor)
	}
	return cc, nil
}

func defaultLag(times []float64, factor float64) float64 {
	if len(times) < 2 {
		return 0
	}
	return math.Ceil(factor * (times[len(times)-1] - times[0]) / float64(len(times)-1))
}

// differences appends ref[k] - other[j] for all |ref[k] - other[j]| < lag.
// other must be sorted.
func differences(ref, other []float64, lag float64, out []float64) []float64 {
	if out == nil {
		out = make([]float64, 0, 4*len(ref))
	}
	for _, r := range ref {
		lo := sort.Search(len(other), func(i int) bool { return other[i] > r-lag })
		hi := sort.SearchFloat64s(other, r+lag)
		for _, o := range other[lo:hi] {
			out = append(out, r-o)
		}
	}
	return out
}

// shuffled is a surrogate with the same number of events: the permuted ISIs
// of times, accumulated from the first event plus an exponential offset with
// the mean ISI.
func shuffled(times []float64, rng *rand.Rand) []float64 {
	if len(times) < 2 {
		return append([]float64(nil), times...)
	}
	isi := make([]float64, len(times)-1)
	for i := range isi {
		isi[i] = times[i+1] - times[i]
	}
	offset := 0.0
	if mean := stat.Mean(isi, nil); mean > 0 {
		offset = distuv.Exponential{Rate: 1 / mean, Src: rng}.Rand()
	}

	out := make([]float64, len(times))
	out[0] = times[0] + offset
	for i, j := range rng.Perm(len(isi)) {
		out[i+1] = out[i] + isi[j]
	}
	return out
}

func negate(values []float64) {
	for i := range values {
		values[i] = -values[i]
	}
}

// Correlogram is a histogram of cross-correlation differences with bins
// centred on multiples of the bin width.
type Correlogram struct {
	Centers []float64 `json:"centers"`
	Counts  []float64 `json:"counts"`
	// Predictor is the average count per surrogate.
	Predictor []float64 `json:"predictor,omitempty"`
	Norm      float64   `json:"norm"`
}

// Histogram bins the differences over [-Lag, Lag] with a bin centred at 0.
func (cc *CrossCorrelation) Histogram(binWidth float64) (*Correlogram, error) {
	if !(binWidth > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinWidth, binWidth)
	}
	half := int(math.Ceil(cc.Lag/binWidth - 0.5))
	n := 2*half + 1
	cg := &Correlogram{
		Centers: make([]float64, n),
		Counts:  binDiffs(cc.Diffs, binWidth, half),
		Norm:    cc.Norm,
	}
	for i := range cg.Centers {
		cg.Centers[i] = float64(i-half) * binWidth
	}
	if cc.NPred > 0 {
		cg.Predictor = binDiffs(cc.Predictor, binWidth, half)
		for i := range cg.Predictor {
			cg.Predictor[i] /= float64(cc.NPred)
		}
	}
	return cg, nil
}

func binDiffs(diffs []float64, binWidth float64, half int) []float64 {
	counts := make([]float64, 2*half+1)
	for _, d := range diffs {
		i := int(math.Floor(d/binWidth+0.5)) + half
		if i >= 0 && i < len(counts) {
			counts[i]++
		}
	}
	return counts
}

// Coefficients are the counts divided by Norm.
func (cg *Correlogram) Coefficients() []float64 {
	out := make([]float64, len(cg.Counts))
	if cg.Norm == 0 {
		return out
	}
	for i, c := range cg.Counts {
		out[i] = c / cg.Norm
	}
	return out
}
