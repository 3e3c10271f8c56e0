// Package analysis computes pairwise statistics of spike trains and signals:
// FFT cross-correlation, spike-time cross-correlograms with shuffle
// predictors, zero-lag coincidence and rate-estimation kernels.
package analysis

import "errors"

var (
	ErrEmptyInput      = errors.New("input is empty")
	ErrConstantSignal  = errors.New("signal has zero variance")
	ErrTooFewSpikes    = errors.New("not enough spikes")
	ErrInvalidLag      = errors.New("lag must be positive")
	ErrInvalidBinWidth = errors.New("bin width must be positive")
	ErrNoRandomSource  = errors.New("random source required")
	ErrInvalidPairs    = errors.New("cannot select pairs")
	ErrInvalidKernel   = errors.New("invalid kernel")
)
