package stgen

import (
	"math"

	"gonum.org/v1/gonum/mathext"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// InhGamma draws an inhomogeneous gamma renewal train on the generator grid.
//
// The age since the last spike advances one grid step at a time and the
// cumulative hazard of the gamma interval distribution, -ln Q(shape, age/scale),
// is accumulated with the parameters in effect at each step. A spike is
// emitted when the accumulated hazard crosses an Exp(1) threshold, after which
// age, accumulator and threshold are reset.
func (g *Generator) InhGamma(p GammaParams, tStop float64) (*signals.SpikeTrain, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := g.checkGrid(); err != nil {
		return nil, err
	}
	tStart := p.Times[0]
	if err := checkHorizon(tStart, tStop); err != nil {
		return nil, err
	}

	dt := g.dt
	n := gridSteps(tStart, tStop, dt)
	cursor := segmentCursor{times: p.Times}
	var times []float64

	threshold := g.rng.ExpFloat64()
	hazard, age := 0.0, 0.0
	for k := 0; k < n; k++ {
		i := cursor.at(tStart + float64(k)*dt)
		hazard += gammaHazardStep(p.Shape[i], p.Scale[i], age, dt)
		age += dt
		if hazard < threshold {
			continue
		}
		ts := tStart + float64(k+1)*dt
		if ts >= tStop {
			break
		}
		times = append(times, ts)
		threshold = g.rng.ExpFloat64()
		hazard, age = 0, 0
	}
	return signals.NewSpikeTrain(times, signals.WithBounds(tStart, tStop))
}

// gammaHazardStep integrates the gamma hazard over [age, age+dt] (ms) for
// shape a and scale b (s). Once the survival function underflows the hazard
// is at its asymptote 1/b.
func gammaHazardStep(a, b, age, dt float64) float64 {
	q0 := mathext.GammaIncRegComp(a, age/1000/b)
	q1 := mathext.GammaIncRegComp(a, (age+dt)/1000/b)
	if q0 <= 0 || q1 <= 0 {
		return dt / 1000 / b
	}
	return math.Log(q0) - math.Log(q1)
}
