package signals

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineSignal(t *testing.T, n int, dt float64, opts ...Option) *AnalogSignal {
	t.Helper()
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Sin(float64(i) * dt / 100)
	}
	s, err := NewAnalogSignal(values, dt, opts...)
	require.NoError(t, err)
	return s
}

func TestNewAnalogSignal(t *testing.T) {
	s := sineSignal(t, 10000, 0.1)
	assert.Equal(t, 0.0, s.TStart())
	assert.InDelta(t, 1000.0, s.TStop(), 1e-9)
	assert.Equal(t, 10000, s.Len())

	s = sineSignal(t, 10000, 0.1, WithBounds(10, 1010))
	assert.Equal(t, 10.0, s.TStart())
	assert.Equal(t, 1010.0, s.TStop())

	_, err := NewAnalogSignal(make([]float64, 10000), 0.1, WithBounds(100, 70))
	assert.ErrorIs(t, err, ErrInvalidBounds)

	_, err = NewAnalogSignal(make([]float64, 10000), 0.1, WithBounds(0, 500))
	assert.ErrorIs(t, err, ErrInvalidBounds)

	_, err = NewAnalogSignal(make([]float64, 10), 0)
	assert.ErrorIs(t, err, ErrInvalidDT)
}

func TestAnalogSignal_TimeAxisAndSlice(t *testing.T) {
	s := sineSignal(t, 10000, 0.1)
	axis := s.TimeAxis()
	require.Len(t, axis, 10000)
	assert.InDelta(t, 0.1, axis[1], 1e-12)

	sliced := s.TimeSlice(0, 500)
	assert.Equal(t, 5000, sliced.Len())
	assert.Equal(t, 0.0, sliced.TStart())
	assert.InDelta(t, 500.0, sliced.TStop(), 1e-9)

	sliced = s.TimeSlice(250, 750)
	assert.Equal(t, 5000, sliced.Len())
	assert.InDelta(t, 250.0, sliced.TStart(), 1e-9)
	assert.Equal(t, s.At(2500), sliced.At(0))

	// Outside the signal the slice is clipped
	sliced = s.TimeSlice(900, 5000)
	assert.Equal(t, 1000, sliced.Len())
}

func TestAnalogSignal_TimeOffset(t *testing.T) {
	s := sineSignal(t, 100, 1)
	s.TimeOffset(50)
	assert.Equal(t, 50.0, s.TStart())
	assert.Equal(t, 150.0, s.TStop())
}

func TestAnalogSignal_ThresholdDetection(t *testing.T) {
	values := make([]float64, 10000)
	for start := 0; start < 10000; start += 1000 {
		for i := start; i < start+50; i++ {
			values[i] = 0.5
		}
	}
	s, err := NewAnalogSignal(values, 0.1)
	require.NoError(t, err)

	events, err := s.ThresholdDetection(0.2)
	require.NoError(t, err)
	assert.Equal(t, 10, events.Len())
	assert.Equal(t, 0.0, events.Times()[0])
	assert.InDelta(t, 100.0, events.Times()[1], 1e-9)
	assert.Equal(t, s.TStop(), events.TStop())

	shifted, err := NewAnalogSignal([]float64{1, 0, 1, 0}, 1, WithTStart(-2))
	require.NoError(t, err)
	_, err = shifted.ThresholdDetection(0.5)
	assert.ErrorIs(t, err, ErrInvalidBounds)
}

func TestAnalogSignal_SliceByEvents(t *testing.T) {
	s := sineSignal(t, 10000, 0.1)
	slices := s.SliceByEvents([]float64{0, 50, 100}, 0, 50)
	require.Len(t, slices, 3)
	for _, sl := range slices {
		assert.Equal(t, 500, sl.Len())
	}
}

func TestAnalogSignal_SliceExcludeEvents(t *testing.T) {
	s := sineSignal(t, 10000, 0.1)

	tests := []struct {
		name      string
		events    []float64
		tMin      float64
		tMax      float64
		durations []float64
	}{
		{"split in two", []float64{500}, 0, 0, []float64{500, 500}},
		{"cut start", []float64{0}, 10, 10, []float64{990}},
		{"two events", []float64{250, 750}, 50, 50, []float64{200, 400, 200}},
		{"cut end", []float64{1000}, 50, 50, []float64{950}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var durations []float64
			var segments []*AnalogSignal
			for seg := range s.SliceExcludeEvents(tt.events, tt.tMin, tt.tMax) {
				durations = append(durations, seg.Duration())
				segments = append(segments, seg)
			}
			require.Len(t, durations, len(tt.durations))
			for i := range durations {
				assert.InDelta(t, tt.durations[i], durations[i], 1e-6)
			}
			for i := 1; i < len(segments); i++ {
				assert.LessOrEqual(t, segments[i-1].TStop(), segments[i].TStart()+1e-9)
			}
		})
	}
}

func TestAnalogSignal_EventTriggeredAverage(t *testing.T) {
	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i % 100)
	}
	s, err := NewAnalogSignal(values, 1)
	require.NoError(t, err)

	avg, used := s.EventTriggeredAverage([]float64{100, 200, 300}, 0, 10)
	assert.Equal(t, 3, used)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, avg)

	// Windows running past either edge are dropped
	avg, used = s.EventTriggeredAverage([]float64{5, 500, 995}, 10, 10)
	assert.Equal(t, 1, used)
	assert.Len(t, avg, 20)

	avg, used = s.EventTriggeredAverage([]float64{999}, 0, 10)
	assert.Equal(t, 0, used)
	assert.Nil(t, avg)
}

func TestAnalogSignal_Statistics(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	values := make([]float64, 10000)
	for i := range values {
		values[i] = rng.NormFloat64()
	}
	s, err := NewAnalogSignal(values, 0.1)
	require.NoError(t, err)

	cov, err := s.Cov(s)
	require.NoError(t, err)
	assert.Greater(t, cov, 0.5)
	assert.InDelta(t, 0.0, s.Mean(), 0.1)
	assert.InDelta(t, 1.0, s.Std(), 0.1)
	assert.Equal(t, slices.Max(values), s.Max())

	_, err = s.Cov(sineSignal(t, 10, 0.1))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestAnalogSignal_WindowedMean(t *testing.T) {
	values := make([]float64, 100)
	for i := 50; i < 100; i++ {
		values[i] = 2
	}
	s, err := NewAnalogSignal(values, 1)
	require.NoError(t, err)

	results, err := s.WindowedMean(CreateTumblingWindows(0, 100, 50))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.0, results[0].Value)
	assert.Equal(t, 2.0, results[1].Value)
}

func TestAnalogSignalList(t *testing.T) {
	var samples []Sample
	for id := 0; id < 10; id++ {
		for i := 0; i < 1000; i++ {
			samples = append(samples, Sample{ID: id, Value: float64(id)})
		}
	}
	al, err := NewAnalogSignalList(samples, nil, 0.1, WithBounds(0, 100))
	require.NoError(t, err)

	assert.Equal(t, 10, al.Len())
	assert.Equal(t, 100.0, al.TStop())

	sub := al.IDSlice(0, 1, 2, 99)
	assert.Equal(t, []int{0, 1, 2}, sub.IDs())

	sliced := al.TimeSlice(0, 50)
	sig, ok := sliced.Signal(3)
	require.True(t, ok)
	assert.Equal(t, 500, sig.Len())
	assert.InDelta(t, 50.0, sliced.TStop(), 1e-9)

	mean := al.Mean()
	require.Len(t, mean, 1000)
	assert.InDelta(t, 4.5, mean[0], 1e-12)
	std := al.Std()
	assert.Greater(t, std[0], 2.0)

	assert.Len(t, al.RawData(), 10000)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, al.SelectIDs(func(_ int, s *AnalogSignal) bool { return s.Mean() > 4 }))

	extra, err := NewAnalogSignal(make([]float64, 1000), 0.1)
	require.NoError(t, err)
	require.NoError(t, al.Append(10, extra))
	assert.ErrorIs(t, al.Append(10, extra), ErrDuplicateID)

	short, err := NewAnalogSignal(make([]float64, 10), 0.1)
	require.NoError(t, err)
	assert.ErrorIs(t, al.Append(11, short), ErrInvalidBounds)
}

func TestNewAnalogSignalList_LengthMismatch(t *testing.T) {
	samples := []Sample{{0, 1}, {0, 2}, {1, 1}}
	_, err := NewAnalogSignalList(samples, nil, 1)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
