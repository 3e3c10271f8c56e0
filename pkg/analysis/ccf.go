package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CCF is the normalized cross-correlation of the anomalies of x and y,
// computed through a real FFT zero-padded to len(x)+len(y). The result has
// len(x)+len(y) lags with lag 0 at index npad-npad/2; the padding makes the
// correlation circular beyond that length.
func CCF(x, y []float64) ([]float64, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, ErrEmptyInput
	}
	npad := len(x) + len(y)
	xa := anomalies(x, npad)
	ya := anomalies(y, npad)

	varxy := math.Sqrt(floats.Dot(xa, xa) * floats.Dot(ya, ya))
	if varxy == 0 {
		return nil, fmt.Errorf("%w: cross-correlation undefined", ErrConstantSignal)
	}

	fft := fourier.NewFFT(npad)
	fx := fft.Coefficients(nil, xa)
	fy := fft.Coefficients(nil, ya)
	for i := range fx {
		fx[i] = cmplx.Conj(fx[i]) * fy[i]
	}
	circular := fft.Sequence(nil, fx)

	out := make([]float64, npad)
	half := npad / 2
	for i := range out {
		out[i] = circular[(i+half)%npad] / float64(npad) / varxy
	}
	return out, nil
}

// anomalies returns x minus its mean, zero-padded to n samples.
func anomalies(x []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, x)
	floats.AddConst(-stat.Mean(x, nil), out[:len(x)])
	return out
}
