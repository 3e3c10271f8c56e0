package stgen

import (
	"fmt"
	"math"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// kernelCutoff is where an exponential response is truncated, relative to q.
const kernelCutoff = 1e-8

// ShotNoise sums causal exponential responses q*exp(-(t-ts)/tau) triggered by
// the spikes of train, sampled every dt ms over exactly [tStart, tStop).
// Spikes outside that interval are ignored; a spike at tStart is included.
func ShotNoise(train *signals.SpikeTrain, q, tau, dt, tStart, tStop float64) (*signals.AnalogSignal, error) {
	if train == nil {
		return nil, signals.ErrNilTrain
	}
	if !(dt > 0) || !(tau > 0) || math.IsInf(dt, 0) || math.IsInf(tau, 0) {
		return nil, fmt.Errorf("%w: dt=%v tau=%v", ErrInvalidStep, dt, tau)
	}
	if math.IsNaN(tStart) {
		return nil, fmt.Errorf("%w: t_start=%v", ErrInvalidHorizon, tStart)
	}
	if err := checkHorizon(tStart, tStop); err != nil {
		return nil, err
	}
	steps := (tStop - tStart) / dt
	n := int(math.Round(steps))
	if math.Abs(steps-float64(n)) > 1e-6*max(1, steps) {
		return nil, fmt.Errorf("%w: [%v, %v] is not a whole number of dt=%v steps", ErrInvalidStep, tStart, tStop, dt)
	}

	kernel := decayKernel(tau, dt)
	values := make([]float64, n)
	for _, ts := range train.TimeSlice(tStart, tStop).Times() {
		first := int(math.Ceil((ts-tStart)/dt - 1e-9))
		if first >= n {
			continue
		}
		// Spikes off the grid land between samples
		amp := q * math.Exp(-(tStart+float64(first)*dt-ts)/tau)
		for j, k := range kernel {
			if first+j >= n {
				break
			}
			values[first+j] += amp * k
		}
	}
	return signals.NewAnalogSignal(values, dt, signals.WithBounds(tStart, tStop))
}

// ShotNoiseSpan is ShotNoise over the train's own bounds.
func ShotNoiseSpan(train *signals.SpikeTrain, q, tau, dt float64) (*signals.AnalogSignal, error) {
	if train == nil {
		return nil, signals.ErrNilTrain
	}
	return ShotNoise(train, q, tau, dt, train.TStart(), train.TStop())
}

func decayKernel(tau, dt float64) []float64 {
	n := int(math.Ceil(tau*math.Log(1/kernelCutoff)/dt)) + 1
	kernel := make([]float64, n)
	for i := range kernel {
		kernel[i] = math.Exp(-float64(i) * dt / tau)
	}
	return kernel
}
