package analysis

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// FrequencySpectrum returns the amplitude of the positive-frequency
// components of x sampled every dt ms, without detrending or windowing.
// Amplitudes are those of the matching sine components; the DC term is the
// mean. Frequencies are in Hz.
func FrequencySpectrum(x []float64, dt float64) (freqs, amps []float64, err error) {
	if len(x) < 2 {
		return nil, nil, ErrEmptyInput
	}
	if !(dt > 0) {
		return nil, nil, fmt.Errorf("%w: %v", signals.ErrInvalidDT, dt)
	}
	n := len(x)
	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, x)

	half := n / 2
	freqs = make([]float64, half)
	amps = make([]float64, half)
	for i := range half {
		freqs[i] = fft.Freq(i) * 1000 / dt
		amps[i] = 2 * cmplx.Abs(coeff[i]) / float64(n)
	}
	amps[0] /= 2
	return freqs, amps, nil
}

// SignalSpectrum is FrequencySpectrum of an analog signal.
func SignalSpectrum(s *signals.AnalogSignal) (freqs, amps []float64, err error) {
	if s == nil {
		return nil, nil, signals.ErrNilSignal
	}
	return FrequencySpectrum(s.Values(), s.DT())
}
