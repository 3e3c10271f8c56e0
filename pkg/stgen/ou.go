package stgen

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// OU integrates an Ornstein-Uhlenbeck process relaxing to y0 with time
// constant tau and stationary standard deviation sigma, sampled every dt ms
// from tStart. The result holds every grid point below tStop.
func (g *Generator) OU(dt, tau, sigma, y0, tStart, tStop float64) (*signals.AnalogSignal, error) {
	if !(dt > 0) || !(tau > 0) {
		return nil, fmt.Errorf("%w: dt=%v tau=%v", ErrInvalidStep, dt, tau)
	}
	if sigma < 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("%w: sigma=%v", ErrInvalidParameter, sigma)
	}
	if err := checkHorizon(tStart, tStop); err != nil {
		return nil, err
	}

	n := gridSteps(tStart, tStop, dt)
	fac := dt / tau
	noise := math.Sqrt(2*fac) * sigma
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: g.rng}

	y := make([]float64, n)
	y[0] = y0
	for i := 1; i < n; i++ {
		y[i] = y[i-1] + fac*(y0-y[i-1]) + noise*normal.Rand()
	}
	return signals.NewAnalogSignal(y, dt, signals.WithTStart(tStart))
}
