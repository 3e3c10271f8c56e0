package stgen

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// InhAdaptingMarkov draws a 1D adapting Markov train on the generator grid.
// At every grid time the spike probability is hazard*dt with hazard
// A*exp(-BQ*q); q starts at 0, jumps by 1 on a spike and decays with Tau.
func (g *Generator) InhAdaptingMarkov(p MarkovParams, tStop float64) (*signals.SpikeTrain, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return g.adaptingMarkov(p.A, p.BQ, p.Times, tStop, []markovState{{tau: p.Tau, weight: 1}})
}

// Inh2DAdaptingMarkov draws a 2D adapting Markov train: the hazard is
// A*exp(-BQ*(qs + QrQs*qr)) with qs decaying with TauS and qr with TauR.
func (g *Generator) Inh2DAdaptingMarkov(p Markov2DParams, tStop float64) (*signals.SpikeTrain, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return g.adaptingMarkov(p.A, p.BQ, p.Times, tStop, []markovState{
		{tau: p.TauS, weight: 1},
		{tau: p.TauR, weight: p.QrQs},
	})
}

type markovState struct {
	tau    float64
	weight float64
	decay  float64
	q      float64
}

func (g *Generator) adaptingMarkov(a, bq, breakpoints []float64, tStop float64, states []markovState) (*signals.SpikeTrain, error) {
	if err := g.checkGrid(); err != nil {
		return nil, err
	}
	tStart := breakpoints[0]
	if err := checkHorizon(tStart, tStop); err != nil {
		return nil, err
	}

	dt := g.dt
	for i := range states {
		states[i].decay = math.Exp(-dt / states[i].tau)
	}
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: g.rng}
	cursor := segmentCursor{times: breakpoints}
	n := gridSteps(tStart, tStop, dt)
	var times []float64

	for k := 1; k < n; k++ {
		t := tStart + float64(k)*dt
		for i := range states {
			states[i].q *= states[i].decay
		}
		seg := cursor.at(t)

		adaptation := 0.0
		for _, s := range states {
			adaptation += s.weight * s.q
		}
		hazard := a[seg] * math.Exp(-bq[seg]*adaptation)
		if uniform.Rand() >= hazard*dt/1000 {
			continue
		}
		times = append(times, t)
		for i := range states {
			states[i].q++
		}
	}
	return signals.NewSpikeTrain(times, signals.WithBounds(tStart, tStop))
}
