package stgen

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// Poisson draws a homogeneous Poisson train with rate Hz over [tStart, tStop).
// Intervals are exponential; the first event past tStop is discarded.
func (g *Generator) Poisson(rate, tStart, tStop float64) (*signals.SpikeTrain, error) {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("%w: rate=%v", ErrNegativeRate, rate)
	}
	if tStart < 0 {
		return nil, fmt.Errorf("%w: t_start=%v", ErrInvalidHorizon, tStart)
	}
	if err := checkHorizon(tStart, tStop); err != nil {
		return nil, err
	}
	return signals.NewSpikeTrain(g.poissonTimes(rate, tStart, tStop), signals.WithBounds(tStart, tStop))
}

func (g *Generator) poissonTimes(rate, tStart, tStop float64) []float64 {
	if rate == 0 {
		return nil
	}
	isi := distuv.Exponential{Rate: rate / 1000, Src: g.rng}
	times := make([]float64, 0, preallocSize(rate*(tStop-tStart)/1000))

	t := tStart
	for {
		t += isi.Rand()
		if t >= tStop {
			return times
		}
		times = append(times, t)
	}
}

// maxPrealloc caps the up-front buffer of a train; longer trains grow by append.
const maxPrealloc = 1 << 20

// preallocSize is the buffer for a train of about expected events, with
// three standard deviations of headroom.
func preallocSize(expected float64) int {
	n := expected + 3*math.Sqrt(expected)
	if !(n < maxPrealloc) {
		return maxPrealloc
	}
	return int(n) + 1
}

// InhPoisson draws an inhomogeneous Poisson train by thinning: candidates
// come from a homogeneous process at the envelope rate and each is kept with
// probability rate(t)/envelope. The train starts at the first breakpoint.
func (g *Generator) InhPoisson(rf RateFunction, tStop float64) (*signals.SpikeTrain, error) {
	if err := rf.Validate(); err != nil {
		return nil, err
	}
	tStart := rf.TStart()
	if err := checkHorizon(tStart, tStop); err != nil {
		return nil, err
	}

	rmax := rf.Max()
	if rmax == 0 {
		return signals.NewSpikeTrain(nil, signals.WithBounds(tStart, tStop))
	}

	candidates := g.poissonTimes(rmax, tStart, tStop)
	accept := distuv.Uniform{Min: 0, Max: 1, Src: g.rng}
	cursor := segmentCursor{times: rf.Times}
	kept := candidates[:0]
	for _, t := range candidates {
		if accept.Rand() < rf.Rates[cursor.at(t)]/rmax {
			kept = append(kept, t)
		}
	}
	return signals.NewSpikeTrain(kept, signals.WithBounds(tStart, tStop))
}
