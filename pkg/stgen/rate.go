package stgen

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
)

var (
	ErrEmptyRateFunction = errors.New("rate function is empty")
	ErrBreakpoints       = errors.New("breakpoints must be strictly increasing")
	ErrLengthMismatch    = errors.New("parameter and breakpoint lengths differ")
	ErrNegativeRate      = errors.New("rates must be non-negative")
	ErrInvalidHorizon    = errors.New("t_stop must be after t_start")
	ErrInvalidStep       = errors.New("step and time constants must be positive")
	ErrInvalidParameter  = errors.New("invalid process parameter")
)

// RateFunction is a piecewise-constant rate in Hz: Rates[i] applies from
// Times[i] (ms) until Times[i+1], the last one until t_stop.
type RateFunction struct {
	Rates []float64 `json:"rates"`
	Times []float64 `json:"times"`
}

// Constant returns a rate function holding rate from tStart on.
func Constant(rate, tStart float64) RateFunction {
	return RateFunction{Rates: []float64{rate}, Times: []float64{tStart}}
}

// Validate checks the shape of the rate function and that rates are finite
// and non-negative.
func (rf RateFunction) Validate() error {
	if err := checkBreakpoints(rf.Times, len(rf.Rates)); err != nil {
		return err
	}
	return checkNonNegative("rate", rf.Rates)
}

// TStart is the first breakpoint.
func (rf RateFunction) TStart() float64 { return rf.Times[0] }

// Max is the envelope rate used for thinning.
func (rf RateFunction) Max() float64 { return slices.Max(rf.Rates) }

// At returns the rate in effect at t. Times before the first breakpoint use
// the first rate.
func (rf RateFunction) At(t float64) float64 {
	return rf.Rates[segment(rf.Times, t)]
}

// Scaled returns a copy with every rate multiplied by factor.
func (rf RateFunction) Scaled(factor float64) RateFunction {
	out := RateFunction{Rates: slices.Clone(rf.Rates), Times: slices.Clone(rf.Times)}
	for i := range out.Rates {
		out.Rates[i] *= factor
	}
	return out
}

// GammaParams describes an inhomogeneous gamma renewal process. Shape[i] and
// Scale[i] (seconds) apply from Times[i]; the mean rate of a segment is
// 1/(Shape*Scale) Hz.
type GammaParams struct {
	Shape []float64 `json:"shape"`
	Scale []float64 `json:"scale"`
	Times []float64 `json:"times"`
}

func (p GammaParams) Validate() error {
	if err := checkBreakpoints(p.Times, len(p.Shape), len(p.Scale)); err != nil {
		return err
	}
	if err := checkPositive("shape", p.Shape); err != nil {
		return err
	}
	return checkPositive("scale", p.Scale)
}

// MarkovParams describes a 1D adapting Markov process with hazard
// A*exp(-BQ*q) (Hz). q jumps by 1 at each spike and relaxes with Tau (ms).
type MarkovParams struct {
	A     []float64 `json:"a"`
	BQ    []float64 `json:"bq"`
	Times []float64 `json:"times"`
	Tau   float64   `json:"tau"`
}

func (p MarkovParams) Validate() error {
	if err := checkBreakpoints(p.Times, len(p.A), len(p.BQ)); err != nil {
		return err
	}
	if err := checkNonNegative("a", p.A); err != nil {
		return err
	}
	if err := checkNonNegative("bq", p.BQ); err != nil {
		return err
	}
	if !(p.Tau > 0) {
		return fmt.Errorf("%w: tau=%v", ErrInvalidStep, p.Tau)
	}
	return nil
}

// Markov2DParams describes a 2D adapting Markov process with hazard
// A*exp(-BQ*(qs + QrQs*qr)). qs relaxes with TauS (spike-frequency adaptation)
// and qr with TauR (relative refractoriness); both jump by 1 at each spike.
type Markov2DParams struct {
	A     []float64 `json:"a"`
	BQ    []float64 `json:"bq"`
	Times []float64 `json:"times"`
	TauS  float64   `json:"tau_s"`
	TauR  float64   `json:"tau_r"`
	QrQs  float64   `json:"qrqs"`
}

func (p Markov2DParams) Validate() error {
	if err := checkBreakpoints(p.Times, len(p.A), len(p.BQ)); err != nil {
		return err
	}
	if err := checkNonNegative("a", p.A); err != nil {
		return err
	}
	if err := checkNonNegative("bq", p.BQ); err != nil {
		return err
	}
	if !(p.TauS > 0) || !(p.TauR > 0) {
		return fmt.Errorf("%w: tau_s=%v tau_r=%v", ErrInvalidStep, p.TauS, p.TauR)
	}
	if p.QrQs < 0 || math.IsNaN(p.QrQs) {
		return fmt.Errorf("%w: qrqs=%v", ErrInvalidParameter, p.QrQs)
	}
	return nil
}

func checkBreakpoints(times []float64, lengths ...int) error {
	if len(times) == 0 {
		return ErrEmptyRateFunction
	}
	for _, n := range lengths {
		if n != len(times) {
			return fmt.Errorf("%w: %d values for %d breakpoints", ErrLengthMismatch, n, len(times))
		}
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return fmt.Errorf("%w: breakpoint %v", ErrBreakpoints, t)
		}
		if i > 0 && t <= times[i-1] {
			return fmt.Errorf("%w: %v after %v", ErrBreakpoints, t, times[i-1])
		}
	}
	return nil
}

func checkNonNegative(name string, values []float64) error {
	for _, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrNegativeRate, name, v)
		}
	}
	return nil
}

func checkPositive(name string, values []float64) error {
	for _, v := range values {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidParameter, name, v)
		}
	}
	return nil
}

func checkHorizon(tStart, tStop float64) error {
	if math.IsNaN(tStop) || math.IsInf(tStop, 0) || tStop <= tStart {
		return fmt.Errorf("%w: t_start=%v t_stop=%v", ErrInvalidHorizon, tStart, tStop)
	}
	return nil
}

// segment is the index of the last breakpoint at or before t, 0 before the first.
func segment(times []float64, t float64) int {
	i := sort.Search(len(times), func(i int) bool { return times[i] > t }) - 1
	return max(i, 0)
}

// segmentCursor walks breakpoints for monotonically increasing times.
type segmentCursor struct {
	times []float64
	i     int
}

func (c *segmentCursor) at(t float64) int {
	for c.i+1 < len(c.times) && c.times[c.i+1] <= t {
		c.i++
	}
	return c.i
}
