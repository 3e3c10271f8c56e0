package stgen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

func TestShotNoise_Bounds(t *testing.T) {
	g := NewSeeded(1)
	st, err := g.Poisson(10, 0, 1000)
	require.NoError(t, err)

	ge, err := ShotNoiseSpan(st, 2, 10, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ge.TStart())
	assert.Equal(t, 1000.0, ge.TStop())
	assert.Equal(t, 10000, ge.Len())

	ge, err = ShotNoise(st, 2, 10, 0.1, 500, 1500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, ge.TStart())
	assert.Equal(t, 1500.0, ge.TStop())
}

func TestShotNoise_SingleSpike(t *testing.T) {
	st := signals.MustSpikeTrain([]float64{10}, signals.WithBounds(0, 100))
	ge, err := ShotNoise(st, 2, 5, 0.5, 0, 100)
	require.NoError(t, err)

	// Causal: nothing before the spike
	for i := 0; i < 20; i++ {
		assert.Equal(t, 0.0, ge.At(i))
	}
	assert.InDelta(t, 2.0, ge.At(20), 1e-12)
	assert.InDelta(t, 2*math.Exp(-1), ge.At(30), 1e-12)
}

func TestShotNoise_WindowEdges(t *testing.T) {
	st := signals.MustSpikeTrain([]float64{0, 50, 100}, signals.WithBounds(0, 100))

	// A spike at t_start is included, one at t_stop is not
	ge, err := ShotNoise(st, 1, 1, 1, 50, 100)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ge.At(0), 1e-12)
	assert.Equal(t, 50, ge.Len())

	// Spikes before the window do not leak into it
	ge, err = ShotNoise(st, 1, 100, 1, 10, 40)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ge.Max())
}

func TestShotNoise_Validation(t *testing.T) {
	st := signals.MustSpikeTrain([]float64{1, 2})

	tests := []struct {
		name    string
		tau, dt float64
		t0, t1  float64
		wantErr error
	}{
		{"zero dt", 10, 0, 0, 10, ErrInvalidStep},
		{"negative tau", -1, 0.1, 0, 10, ErrInvalidStep},
		{"empty window", 10, 0.1, 10, 10, ErrInvalidHorizon},
		{"reversed window", 10, 0.1, 10, 5, ErrInvalidHorizon},
		{"partial step", 10, 0.3, 0, 10, ErrInvalidStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ShotNoise(st, 1, tt.tau, tt.dt, tt.t0, tt.t1)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := ShotNoise(nil, 1, 1, 1, 0, 10)
	assert.ErrorIs(t, err, signals.ErrNilTrain)
}

func TestShotNoise_TriggeredAverageRecoversKernel(t *testing.T) {
	const (
		q   = 2.0
		tau = 10.0
		dt  = 0.1
	)
	st := signals.MustSpikeTrain(arange(0, 1000, 100), signals.WithBounds(0, 1000))
	ge, err := ShotNoiseSpan(st, q, tau, dt)
	require.NoError(t, err)

	avg, used := ge.EventTriggeredAverage(st.Times(), 0, 50)
	assert.Equal(t, 10, used)
	require.Len(t, avg, 500)
	for j := 0; j < len(avg); j += 25 {
		want := q * math.Exp(-float64(j)*dt/tau)
		assert.InDelta(t, want, avg[j], 1e-3, "sample %d", j)
	}
}

func TestShotNoise_TriggeredAveragePoisson(t *testing.T) {
	const (
		q   = 2.0
		tau = 10.0
		dt  = 0.1
	)
	st, err := NewSeeded(21).Poisson(10, 0, 20000)
	require.NoError(t, err)
	ge, err := ShotNoiseSpan(st, q, tau, dt)
	require.NoError(t, err)

	avg, used := ge.EventTriggeredAverage(st.Times(), 0, 50)
	require.Greater(t, used, 100)

	// Independent spikes add the mean level to the kernel
	background := ge.Mean()
	assert.InDelta(t, q*tau*10/1000, background, 0.1)
	assert.InDelta(t, q, avg[0]-background, 0.3)
	ratio := (avg[100] - background) / (avg[0] - background)
	assert.InDelta(t, math.Exp(-1), ratio, 0.1)
}

func arange(start, stop, step float64) []float64 {
	var out []float64
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v >= stop {
			return out
		}
		out = append(out, v)
	}
}
