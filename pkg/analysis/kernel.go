package analysis

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// KernelForm is the shape of a smoothing kernel.
type KernelForm string

const (
	KernelBox          KernelForm = "BOX"
	KernelTriangle     KernelForm = "TRI"
	KernelEpanechnikov KernelForm = "EPA"
	KernelGaussian     KernelForm = "GAU"
	KernelAlpha        KernelForm = "ALP"
	KernelExponential  KernelForm = "EXP"
)

// Kernel is a normalized convolution kernel for rate estimation.
type Kernel struct {
	Form   KernelForm `json:"form"`
	Values []float64  `json:"values"`
	// Norm converts a kernel-weighted spike count per bin to Hz.
	Norm float64 `json:"norm"`
	// MedianIndex is the first index where the cumulative sum reaches 0.5.
	MedianIndex int `json:"median_index"`
}

// MakeKernel builds a kernel whose distribution has standard deviation sigma
// (ms), sampled every resolution ms. Symmetric kernels have an odd number of
// bins centred on the peak. The asymmetric ALP and EXP kernels are causal for
// direction 1 and reversed for direction -1. Values sum to 1.
func MakeKernel(form KernelForm, sigma, resolution float64, direction int) (*Kernel, error) {
	if !(sigma > 0) || !(resolution > 0) {
		return nil, fmt.Errorf("%w: sigma=%v resolution=%v", ErrInvalidKernel, sigma, resolution)
	}
	if direction != 1 && direction != -1 {
		return nil, fmt.Errorf("%w: direction %d", ErrInvalidKernel, direction)
	}

	form = KernelForm(strings.ToUpper(string(form)))
	var values []float64
	switch form {
	case KernelBox:
		w := 2 * sigma * math.Sqrt(3)
		width := 2*int(math.Floor(w/2/resolution)) + 1
		values = make([]float64, width)
		for i := range values {
			values[i] = 1
		}
	case KernelTriangle:
		half := halfWidth(2*sigma*math.Sqrt(6), resolution)
		values = symmetric(half, func(k float64) float64 { return float64(half) + 1 - math.Abs(k) })
	case KernelEpanechnikov:
		half := halfWidth(2*sigma*math.Sqrt(5), resolution)
		peak := float64(half * half)
		values = symmetric(half, func(k float64) float64 { return peak - k*k })
	case KernelGaussian:
		half := halfWidth(2*sigma*2.7, resolution)
		values = symmetric(half, func(k float64) float64 {
			t := k * resolution
			return math.Exp(-t * t / 2 / (sigma * sigma))
		})
	case KernelAlpha:
		values = causal(sigma, resolution, func(t float64) float64 {
			return 2 / (sigma * sigma) * t * math.Exp(-t*math.Sqrt2/sigma)
		})
	case KernelExponential:
		values = causal(sigma, resolution, func(t float64) float64 {
			return math.Exp(-t / sigma)
		})
	default:
		return nil, fmt.Errorf("%w: unknown form %q", ErrInvalidKernel, form)
	}

	sum := floats.Sum(values)
	if sum == 0 {
		return nil, fmt.Errorf("%w: %s kernel narrower than resolution", ErrInvalidKernel, form)
	}
	floats.Scale(1/sum, values)
	if direction == -1 && (form == KernelAlpha || form == KernelExponential) {
		slices.Reverse(values)
	}

	return &Kernel{
		Form:        form,
		Values:      values,
		Norm:        1000 / resolution,
		MedianIndex: medianIndex(values),
	}, nil
}

func halfWidth(w, resolution float64) int {
	return int(math.Floor(w / 2 / resolution))
}

// symmetric evaluates f at bin offsets -half..half.
func symmetric(half int, f func(k float64) float64) []float64 {
	values := make([]float64, 2*half+1)
	for i := range values {
		values[i] = f(float64(i - half))
	}
	return values
}

// causal evaluates f at times resolution, 2*resolution, ... over a 5 sigma support.
func causal(sigma, resolution float64, f func(t float64) float64) []float64 {
	n := 2*int(math.Floor(5*sigma/resolution/2)) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = f(float64(i+1) * resolution)
	}
	return values
}

func medianIndex(values []float64) int {
	cum := 0.0
	for i, v := range values {
		cum += v
		if cum >= 0.5-1e-12 {
			return i
		}
	}
	return len(values) - 1
}

// InstantaneousRate estimates the firing rate (Hz) of train by convolving its
// spike counts, binned at resolution ms, with kernel. The kernel must have been
// built for the same resolution. Sample i covers the bin starting at
// t_start + i*resolution, with the kernel median aligned on it.
func InstantaneousRate(train *signals.SpikeTrain, resolution float64, kernel *Kernel) (*signals.AnalogSignal, error) {
	if train == nil {
		return nil, signals.ErrNilTrain
	}
	if kernel == nil || len(kernel.Values) == 0 {
		return nil, fmt.Errorf("%w: empty kernel", ErrInvalidKernel)
	}
	counts, err := train.Histogram(resolution, false)
	if err != nil {
		return nil, err
	}

	rate := make([]float64, len(counts))
	m := kernel.MedianIndex
	for i, c := range counts {
		if c == 0 {
			continue
		}
		for j, k := range kernel.Values {
			if idx := i + j - m; idx >= 0 && idx < len(rate) {
				rate[idx] += kernel.Norm * c * k
			}
		}
	}
	return signals.NewAnalogSignal(rate, resolution, signals.WithTStart(train.TStart()))
}
