package stgen

import (
	"fmt"
	"slices"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// Process is a point process that can be sampled up to tStop.
type Process interface {
	Generate(g *Generator, tStop float64) (*signals.SpikeTrain, error)
}

// PoissonProcess is a homogeneous Poisson process starting at TStart.
type PoissonProcess struct {
	Rate   float64
	TStart float64
}

func (p PoissonProcess) Generate(g *Generator, tStop float64) (*signals.SpikeTrain, error) {
	return g.Poisson(p.Rate, p.TStart, tStop)
}

// InhPoissonProcess is an inhomogeneous Poisson process.
type InhPoissonProcess struct{ RateFunction }

func (p InhPoissonProcess) Generate(g *Generator, tStop float64) (*signals.SpikeTrain, error) {
	return g.InhPoisson(p.RateFunction, tStop)
}

// InhGammaProcess is an inhomogeneous gamma renewal process.
type InhGammaProcess struct{ GammaParams }

func (p InhGammaProcess) Generate(g *Generator, tStop float64) (*signals.SpikeTrain, error) {
	return g.InhGamma(p.GammaParams, tStop)
}

// AdaptingMarkovProcess is a 1D adapting Markov process.
type AdaptingMarkovProcess struct{ MarkovParams }

func (p AdaptingMarkovProcess) Generate(g *Generator, tStop float64) (*signals.SpikeTrain, error) {
	return g.InhAdaptingMarkov(p.MarkovParams, tStop)
}

// Adapting2DMarkovProcess is a 2D adapting Markov process.
type Adapting2DMarkovProcess struct{ Markov2DParams }

func (p Adapting2DMarkovProcess) Generate(g *Generator, tStop float64) (*signals.SpikeTrain, error) {
	return g.Inh2DAdaptingMarkov(p.Markov2DParams, tStop)
}

// GenerateList draws one train per identifier 0..n-1 from the same process
// and generator.
func GenerateList(g *Generator, p Process, n int, tStop float64) (*signals.SpikeList, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d cells", ErrInvalidParameter, n)
	}
	trains := make(map[int]*signals.SpikeTrain, n)
	for id := range n {
		st, err := p.Generate(g, tStop)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", id, err)
		}
		trains[id] = st
	}
	return signals.FromTrains(trains)
}

// Kind names a process in experiment descriptions.
type Kind string

const (
	KindPoisson          Kind = "poisson"
	KindInhPoisson       Kind = "inh_poisson"
	KindInhGamma         Kind = "inh_gamma"
	KindAdaptingMarkov   Kind = "adapting_markov"
	KindAdapting2DMarkov Kind = "adapting_markov_2d"
)

// Sweepable parameters understood by ProcessSpec.With.
const (
	ParamRate      = "rate"
	ParamRateScale = "rate_scale"
	ParamShape     = "shape"
	ParamTau       = "tau"
	ParamBQScale   = "bq_scale"
)

// ProcessSpec is the serialisable description of a process. Only the fields
// relevant to Kind are read.
type ProcessSpec struct {
	Kind   Kind      `json:"kind" validate:"required,oneof=poisson inh_poisson inh_gamma adapting_markov adapting_markov_2d"`
	Rate   float64   `json:"rate,omitempty"`
	TStart float64   `json:"t_start,omitempty"`
	Rates  []float64 `json:"rates,omitempty"`
	Shape  []float64 `json:"shape,omitempty"`
	Scale  []float64 `json:"scale,omitempty"`
	A      []float64 `json:"a,omitempty"`
	BQ     []float64 `json:"bq,omitempty"`
	Times  []float64 `json:"times,omitempty"`
	Tau    float64   `json:"tau,omitempty"`
	TauS   float64   `json:"tau_s,omitempty"`
	TauR   float64   `json:"tau_r,omitempty"`
	QrQs   float64   `json:"qrqs,omitempty"`
}

// Process converts the description into a validated Process.
func (s ProcessSpec) Process() (Process, error) {
	var (
		p   Process
		err error
	)
	switch s.Kind {
	case KindPoisson:
		p = PoissonProcess{Rate: s.Rate, TStart: s.TStart}
		if s.Rate < 0 {
			err = fmt.Errorf("%w: rate=%v", ErrNegativeRate, s.Rate)
		}
	case KindInhPoisson:
		rf := RateFunction{Rates: s.Rates, Times: s.Times}
		p, err = InhPoissonProcess{rf}, rf.Validate()
	case KindInhGamma:
		gp := GammaParams{Shape: s.Shape, Scale: s.Scale, Times: s.Times}
		p, err = InhGammaProcess{gp}, gp.Validate()
	case KindAdaptingMarkov:
		mp := MarkovParams{A: s.A, BQ: s.BQ, Times: s.Times, Tau: s.Tau}
		p, err = AdaptingMarkovProcess{mp}, mp.Validate()
	case KindAdapting2DMarkov:
		mp := Markov2DParams{A: s.A, BQ: s.BQ, Times: s.Times, TauS: s.TauS, TauR: s.TauR, QrQs: s.QrQs}
		p, err = Adapting2DMarkovProcess{mp}, mp.Validate()
	default:
		return nil, fmt.Errorf("%w: unknown process kind %q", ErrInvalidParameter, s.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Kind, err)
	}
	return p, nil
}

// StartTime is the t_start of trains drawn from s.
func (s ProcessSpec) StartTime() float64 {
	if s.Kind == KindPoisson || len(s.Times) == 0 {
		return s.TStart
	}
	return s.Times[0]
}

// Workload estimates the draws needed for one train up to tStop: expected
// events for the Poisson kinds, grid steps of DefaultDT for the others.
func (s ProcessSpec) Workload(tStop float64) float64 {
	span := max(tStop-s.StartTime(), 0)
	switch s.Kind {
	case KindPoisson:
		return s.Rate * span / 1000
	case KindInhPoisson:
		if len(s.Rates) == 0 {
			return 0
		}
		return slices.Max(s.Rates) * span / 1000
	default:
		return span / DefaultDT
	}
}

// With returns a copy of s with one sweepable parameter set to value.
//
//	rate        constant rate (poisson) or every segment rate (inh_poisson)
//	rate_scale  multiplies the mean rate of every segment
//	shape       gamma shape, scale adjusted to keep the mean rate
//	tau         adaptation time constant (tau, or tau_s in 2D)
//	bq_scale    multiplies the adaptation strength
func (s ProcessSpec) With(param string, value float64) (ProcessSpec, error) {
	out := s.clone()
	switch {
	case param == ParamRate && s.Kind == KindPoisson:
		out.Rate = value
	case param == ParamRate && s.Kind == KindInhPoisson:
		for i := range out.Rates {
			out.Rates[i] = value
		}
	case param == ParamRateScale:
		switch s.Kind {
		case KindPoisson:
			out.Rate *= value
		case KindInhPoisson:
			scaleAll(out.Rates, value)
		case KindInhGamma:
			if value <= 0 {
				return s, fmt.Errorf("%w: %s=%v", ErrInvalidParameter, param, value)
			}
			scaleAll(out.Scale, 1/value)
		default:
			scaleAll(out.A, value)
		}
	case param == ParamShape && s.Kind == KindInhGamma:
		if value <= 0 {
			return s, fmt.Errorf("%w: %s=%v", ErrInvalidParameter, param, value)
		}
		for i := range out.Shape {
			out.Scale[i] *= out.Shape[i] / value
			out.Shape[i] = value
		}
	case param == ParamTau && s.Kind == KindAdaptingMarkov:
		out.Tau = value
	case param == ParamTau && s.Kind == KindAdapting2DMarkov:
		out.TauS = value
	case param == ParamBQScale && (s.Kind == KindAdaptingMarkov || s.Kind == KindAdapting2DMarkov):
		scaleAll(out.BQ, value)
	default:
		return s, fmt.Errorf("%w: %q does not apply to %s", ErrInvalidParameter, param, s.Kind)
	}
	return out, nil
}

func (s ProcessSpec) clone() ProcessSpec {
	out := s
	out.Rates = slices.Clone(s.Rates)
	out.Shape = slices.Clone(s.Shape)
	out.Scale = slices.Clone(s.Scale)
	out.A = slices.Clone(s.A)
	out.BQ = slices.Clone(s.BQ)
	out.Times = slices.Clone(s.Times)
	return out
}

func scaleAll(values []float64, factor float64) {
	for i := range values {
		values[i] *= factor
	}
}
