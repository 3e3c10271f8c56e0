// Package stgen generates spike trains and analog signals from stochastic
// point processes: homogeneous and inhomogeneous Poisson, inhomogeneous
// gamma renewal, adapting Markov processes and Ornstein-Uhlenbeck noise.
//
// Every Generator owns its random source. Two generators built from the same
// seed produce the same output; generators never share draws.
package stgen

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// DefaultDT is the grid step (ms) used by the grid-based processes.
const DefaultDT = 0.1

const defaultStream = 0x9e3779b97f4a7c15

// Generator draws spike trains from a caller-owned random source.
// A Generator is not safe for concurrent use; give each goroutine its own.
type Generator struct {
	rng *rand.Rand
	dt  float64
}

// Option configures a Generator.
type Option func(*Generator)

// WithDT sets the grid step (ms) for the gamma and Markov processes.
func WithDT(dt float64) Option {
	return func(g *Generator) { g.dt = dt }
}

// New returns a generator drawing from rng. A nil rng is replaced with a
// fixed-seed source so the output stays reproducible.
func New(rng *rand.Rand, opts ...Option) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, defaultStream))
	}
	g := &Generator{rng: rng, dt: DefaultDT}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSeeded returns a generator backed by a PCG source seeded with seed.
func NewSeeded(seed uint64, opts ...Option) *Generator {
	return New(rand.New(rand.NewPCG(seed, defaultStream)), opts...)
}

// Rand exposes the generator's random source.
func (g *Generator) Rand() *rand.Rand { return g.rng }

// DT is the grid step in ms.
func (g *Generator) DT() float64 { return g.dt }

func (g *Generator) checkGrid() error {
	if !(g.dt > 0) || math.IsInf(g.dt, 0) {
		return fmt.Errorf("%w: dt=%v", ErrInvalidStep, g.dt)
	}
	return nil
}

// gridSteps is the number of grid points t_start + k*dt strictly below tStop.
func gridSteps(tStart, tStop, dt float64) int {
	return int(math.Ceil((tStop-tStart)/dt - 1e-9))
}
