package stgen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statSeeds = 10

func countIn(times []float64, lo, hi float64) int {
	n := 0
	for _, t := range times {
		if t >= lo && t < hi {
			n++
		}
	}
	return n
}

func withinSigma(n int, mean float64) bool {
	return math.Abs(float64(n)-mean) <= 3*math.Sqrt(mean)
}

// assertMostly runs check for several seeds and tolerates one statistical miss.
func assertMostly(t *testing.T, name string, check func(g *Generator) bool) {
	t.Helper()
	misses := 0
	for seed := uint64(1); seed <= statSeeds; seed++ {
		if !check(NewSeeded(seed)) {
			misses++
		}
	}
	assert.LessOrEqual(t, misses, 1, "%s failed for %d of %d seeds", name, misses, statSeeds)
}

func TestNewSeeded_Deterministic(t *testing.T) {
	a, err := NewSeeded(42).Poisson(50, 0, 1000)
	require.NoError(t, err)
	b, err := NewSeeded(42).Poisson(50, 0, 1000)
	require.NoError(t, err)
	c, err := NewSeeded(43).Poisson(50, 0, 1000)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	assert.Equal(t, DefaultDT, New(nil).DT())
	assert.Equal(t, 0.5, NewSeeded(1, WithDT(0.5)).DT())
}

func TestPoisson(t *testing.T) {
	tests := []struct {
		name   string
		rate   float64
		tStart float64
		tStop  float64
	}{
		{"high rate", 100, 500, 1500},
		{"high rate short time", 100, 500, 550},
		{"low rate short time", 2, 500, 550},
		{"low rate long time", 5, 500, 50500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean := tt.rate * (tt.tStop - tt.tStart) / 1000
			assertMostly(t, tt.name, func(g *Generator) bool {
				st, err := g.Poisson(tt.rate, tt.tStart, tt.tStop)
				require.NoError(t, err)
				assert.Equal(t, tt.tStart, st.TStart())
				assert.Equal(t, tt.tStop, st.TStop())
				if first, ok := st.FirstSpikeTime(); ok {
					assert.Greater(t, first, tt.tStart)
				}
				if last, ok := st.LastSpikeTime(); ok {
					assert.Less(t, last, tt.tStop)
				}
				return withinSigma(st.Len(), mean)
			})
		})
	}
}

func TestPoisson_LargeTrains(t *testing.T) {
	tests := []struct {
		expected float64
		want     int
	}{
		{0, 1},
		{100, 131},
		{1e21, maxPrealloc},
		{math.Inf(1), maxPrealloc},
		{math.NaN(), maxPrealloc},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, preallocSize(tt.expected), "expected=%v", tt.expected)
	}

	// More events than the up-front buffer holds
	st, err := NewSeeded(3).Poisson(2e6, 0, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 2e6, st.Len(), 5*math.Sqrt(2e6))
}

func TestProcessSpec_Workload(t *testing.T) {
	tests := []struct {
		name  string
		spec  ProcessSpec
		tStop float64
		want  float64
	}{
		{"poisson", ProcessSpec{Kind: KindPoisson, Rate: 20, TStart: 500}, 1500, 20},
		{"inh poisson uses the peak rate", ProcessSpec{Kind: KindInhPoisson, Rates: []float64{10, 50}, Times: []float64{0, 100}}, 2000, 100},
		{"grid steps", ProcessSpec{Kind: KindInhGamma, Shape: []float64{2}, Scale: []float64{0.01}, Times: []float64{100}}, 1100, 1000 / DefaultDT},
		{"empty horizon", ProcessSpec{Kind: KindPoisson, Rate: 20, TStart: 500}, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.spec.Workload(tt.tStop), 1e-9)
		})
	}
}

func TestPoisson_Validation(t *testing.T) {
	g := NewSeeded(1)

	_, err := g.Poisson(-1, 0, 100)
	assert.ErrorIs(t, err, ErrNegativeRate)

	_, err = g.Poisson(10, 100, 100)
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	st, err := g.Poisson(0, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
}

func TestInhPoisson_Constant(t *testing.T) {
	assertMostly(t, "constant rate", func(g *Generator) bool {
		st, err := g.InhPoisson(Constant(100, 500), 1500)
		require.NoError(t, err)
		assert.Equal(t, 500.0, st.TStart())
		return withinSigma(st.Len(), 100)
	})
}

func TestInhPoisson_Step(t *testing.T) {
	rf := RateFunction{Rates: []float64{100, 200}, Times: []float64{500, 1500}}
	assertMostly(t, "rate step", func(g *Generator) bool {
		st, err := g.InhPoisson(rf, 2500)
		require.NoError(t, err)
		times := st.Times()
		n1 := countIn(times, 0, 1500)
		n2 := countIn(times, 1500, 2500)
		return withinSigma(n1, 100) && withinSigma(n2, 200)
	})
}

func TestInhPoisson_ZeroRate(t *testing.T) {
	st, err := NewSeeded(1).InhPoisson(RateFunction{Rates: []float64{0, 0}, Times: []float64{0, 100}}, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, 1000.0, st.TStop())

	// A silent segment stays silent
	rf := RateFunction{Rates: []float64{200, 0}, Times: []float64{0, 500}}
	st, err = NewSeeded(1).InhPoisson(rf, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, countIn(st.Times(), 500, 1000))
	assert.Greater(t, st.Len(), 0)
}

func TestRateFunction_Validation(t *testing.T) {
	tests := []struct {
		name    string
		rf      RateFunction
		tStop   float64
		wantErr error
	}{
		{"empty", RateFunction{}, 100, ErrEmptyRateFunction},
		{"length mismatch", RateFunction{Rates: []float64{1, 2}, Times: []float64{0}}, 100, ErrLengthMismatch},
		{"not increasing", RateFunction{Rates: []float64{1, 2}, Times: []float64{10, 10}}, 100, ErrBreakpoints},
		{"negative rate", RateFunction{Rates: []float64{-1}, Times: []float64{0}}, 100, ErrNegativeRate},
		{"zero horizon", Constant(10, 100), 100, ErrInvalidHorizon},
		{"negative horizon", Constant(10, 100), 50, ErrInvalidHorizon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSeeded(1).InhPoisson(tt.rf, tt.tStop)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRateFunction_At(t *testing.T) {
	rf := RateFunction{Rates: []float64{1, 2, 3}, Times: []float64{100, 200, 300}}
	assert.Equal(t, 1.0, rf.At(0))
	assert.Equal(t, 1.0, rf.At(199.9))
	assert.Equal(t, 2.0, rf.At(200))
	assert.Equal(t, 3.0, rf.At(1e6))
	assert.Equal(t, 3.0, rf.Max())
	assert.Equal(t, []float64{2, 4, 6}, rf.Scaled(2).Rates)
	assert.Equal(t, []float64{1, 2, 3}, rf.Rates)
}

func TestInhGamma_Step(t *testing.T) {
	p := GammaParams{
		Shape: []float64{3, 3},
		Scale: []float64{1.0 / 100 / 3, 1.0 / 200 / 3},
		Times: []float64{500, 1500},
	}
	assertMostly(t, "gamma step", func(g *Generator) bool {
		st, err := g.InhGamma(p, 2500)
		require.NoError(t, err)
		assert.Equal(t, 500.0, st.TStart())
		assert.Equal(t, 2500.0, st.TStop())
		times := st.Times()
		n1 := countIn(times, 0, 1500)
		n2 := countIn(times, 1500, 2500)
		return withinSigma(n1, 100) && withinSigma(n2, 200)
	})
}

func TestInhGamma_Regularity(t *testing.T) {
	// A gamma renewal process of shape a has CV 1/sqrt(a)
	p := GammaParams{Shape: []float64{4}, Scale: []float64{1.0 / 50 / 4}, Times: []float64{0}}
	st, err := NewSeeded(7).InhGamma(p, 40000)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, st.MeanRate(), 5)
	assert.InDelta(t, 0.5, st.CVISI(), 0.08)

	// Grid resolution
	for _, ts := range st.Times()[:10] {
		assert.InDelta(t, math.Round(ts/DefaultDT)*DefaultDT, ts, 1e-9)
	}
}

func TestInhGamma_Validation(t *testing.T) {
	g := NewSeeded(1)

	_, err := g.InhGamma(GammaParams{Shape: []float64{3}, Scale: []float64{0.01, 0.02}, Times: []float64{0}}, 100)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = g.InhGamma(GammaParams{Shape: []float64{0}, Scale: []float64{0.01}, Times: []float64{0}}, 100)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewSeeded(1, WithDT(0)).InhGamma(GammaParams{Shape: []float64{3}, Scale: []float64{0.01}, Times: []float64{0}}, 100)
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestGammaHazardStep(t *testing.T) {
	// Shape 1 is a Poisson process with constant hazard 1/b
	assert.InDelta(t, 0.1/1000/0.01, gammaHazardStep(1, 0.01, 5, 0.1), 1e-9)
	// Far in the tail the hazard saturates at 1/b
	assert.InDelta(t, 0.1/1000/0.01, gammaHazardStep(3, 0.01, 1e5, 0.1), 1e-6)
	// Refractory start: hazard is small right after a spike
	assert.Less(t, gammaHazardStep(3, 0.01, 0, 0.1), 1e-5)
}

func TestInhAdaptingMarkov(t *testing.T) {
	p := MarkovParams{
		A:     []float64{23.18, 47.24},
		BQ:    []float64{0.10912 * 14.48, 0.09794 * 14.48},
		Times: []float64{0, 20000},
		Tau:   110,
	}

	st, err := NewSeeded(3).InhAdaptingMarkov(p, 40000)
	require.NoError(t, err)

	first, ok := st.FirstSpikeTime()
	require.True(t, ok)
	assert.Greater(t, first, 0.0)
	last, _ := st.LastSpikeTime()
	assert.Less(t, last, 40000.0)

	// Adaptation keeps the rate below the unadapted hazard
	r1 := float64(countIn(st.Times(), 0, 20000)) / 20
	r2 := float64(countIn(st.Times(), 20000, 40000)) / 20
	assert.Greater(t, r1, 1.0)
	assert.Less(t, r1, 23.18)
	assert.Less(t, r2, 47.24)
	assert.Greater(t, r2, r1)
}

func TestInh2DAdaptingMarkov(t *testing.T) {
	p := Markov2DParams{
		A:     []float64{23.18, 47.24},
		BQ:    []float64{0.10912 * 14.48, 0.09794 * 14.48},
		Times: []float64{0, 10000},
		TauS:  110,
		TauR:  1.97,
		QrQs:  221.96,
	}

	assertMostly(t, "2D markov", func(g *Generator) bool {
		st, err := g.Inh2DAdaptingMarkov(p, 20000)
		require.NoError(t, err)
		times := st.Times()
		require.NotEmpty(t, times)
		assert.Greater(t, times[0], 0.0)
		assert.Less(t, times[len(times)-1], 20000.0)

		spikes1 := countIn(times, 0, 10000)
		spikes2 := countIn(times, 10000, 20000)
		return spikes1 >= 60 && spikes1 <= 100 && spikes2 >= 80 && spikes2 <= 140
	})
}

func TestInh2DAdaptingMarkov_Refractory(t *testing.T) {
	p := Markov2DParams{
		A:     []float64{200},
		BQ:    []float64{1},
		Times: []float64{0},
		TauS:  100,
		TauR:  2,
		QrQs:  500,
	}
	st, err := NewSeeded(5).Inh2DAdaptingMarkov(p, 5000)
	require.NoError(t, err)
	require.Greater(t, st.Len(), 10)

	// qr pushes the hazard to ~0 for several tau_r after a spike
	for _, isi := range st.ISI() {
		assert.Greater(t, isi, 2.0)
	}
}

func TestMarkov_Validation(t *testing.T) {
	g := NewSeeded(1)

	_, err := g.InhAdaptingMarkov(MarkovParams{A: []float64{1}, BQ: []float64{1}, Times: []float64{0}}, 100)
	assert.ErrorIs(t, err, ErrInvalidStep)

	_, err = g.Inh2DAdaptingMarkov(Markov2DParams{A: []float64{1}, BQ: []float64{1, 2}, Times: []float64{0}, TauS: 1, TauR: 1}, 100)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = g.InhAdaptingMarkov(MarkovParams{A: []float64{1}, BQ: []float64{1}, Times: []float64{0}, Tau: 10}, 0)
	assert.ErrorIs(t, err, ErrInvalidHorizon)
}

func TestOU(t *testing.T) {
	g := NewSeeded(11)
	ou, err := g.OU(0.1, 10, 2, 10, 500, 1500)
	require.NoError(t, err)

	assert.Equal(t, 10000, ou.Len())
	assert.Equal(t, 500.0, ou.TStart())
	assert.InDelta(t, 1500.0, ou.TStop(), 1e-6)
	assert.Equal(t, 10.0, ou.At(0))
	assert.InDelta(t, 10.0, ou.Mean(), 1.5)
	assert.InDelta(t, 2.0, ou.Std(), 0.8)

	_, err = g.OU(0, 10, 2, 10, 0, 100)
	assert.ErrorIs(t, err, ErrInvalidStep)
	_, err = g.OU(0.1, 10, -2, 10, 0, 100)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestProcessSpec(t *testing.T) {
	tests := []struct {
		name string
		spec ProcessSpec
		want Process
	}{
		{"poisson", ProcessSpec{Kind: KindPoisson, Rate: 10}, PoissonProcess{Rate: 10}},
		{"inh poisson", ProcessSpec{Kind: KindInhPoisson, Rates: []float64{1}, Times: []float64{0}}, InhPoissonProcess{}},
		{"inh gamma", ProcessSpec{Kind: KindInhGamma, Shape: []float64{2}, Scale: []float64{0.01}, Times: []float64{0}}, InhGammaProcess{}},
		{"markov", ProcessSpec{Kind: KindAdaptingMarkov, A: []float64{10}, BQ: []float64{1}, Times: []float64{0}, Tau: 100}, AdaptingMarkovProcess{}},
		{"markov 2d", ProcessSpec{Kind: KindAdapting2DMarkov, A: []float64{10}, BQ: []float64{1}, Times: []float64{0}, TauS: 100, TauR: 2, QrQs: 10}, Adapting2DMarkovProcess{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.spec.Process()
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)

			st, err := p.Generate(NewSeeded(1), 1000)
			require.NoError(t, err)
			assert.Equal(t, 1000.0, st.TStop())
		})
	}

	_, err := ProcessSpec{Kind: "hawkes"}.Process()
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = ProcessSpec{Kind: KindInhGamma, Shape: []float64{2}, Times: []float64{0}}.Process()
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestProcessSpec_With(t *testing.T) {
	gamma := ProcessSpec{Kind: KindInhGamma, Shape: []float64{3, 3}, Scale: []float64{0.01, 0.005}, Times: []float64{0, 100}}

	scaled, err := gamma.With(ParamRateScale, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.005, 0.0025}, scaled.Scale)
	// The receiver is untouched
	assert.Equal(t, []float64{0.01, 0.005}, gamma.Scale)

	shaped, err := gamma.With(ParamShape, 6)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 6}, shaped.Shape)
	// Mean rate 1/(shape*scale) is preserved
	assert.InDelta(t, 1/(3*0.01), 1/(shaped.Shape[0]*shaped.Scale[0]), 1e-9)

	poisson, err := ProcessSpec{Kind: KindPoisson, Rate: 10}.With(ParamRate, 25)
	require.NoError(t, err)
	assert.Equal(t, 25.0, poisson.Rate)

	markov := ProcessSpec{Kind: KindAdapting2DMarkov, A: []float64{10}, BQ: []float64{2}, Times: []float64{0}, TauS: 100}
	tau, err := markov.With(ParamTau, 50)
	require.NoError(t, err)
	assert.Equal(t, 50.0, tau.TauS)
	bq, err := markov.With(ParamBQScale, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, bq.BQ)

	_, err = markov.With(ParamShape, 2)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = gamma.With("t_stop", 2)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestGenerateList(t *testing.T) {
	sl, err := GenerateList(NewSeeded(9), PoissonProcess{Rate: 20}, 5, 2000)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, sl.IDs())
	assert.Equal(t, 2000.0, sl.TStop())

	a, _ := sl.Train(0)
	b, _ := sl.Train(1)
	assert.False(t, a.Equal(b))

	_, err = GenerateList(NewSeeded(9), PoissonProcess{Rate: -1}, 2, 100)
	assert.ErrorIs(t, err, ErrNegativeRate)
}
