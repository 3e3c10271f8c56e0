package spikefile

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leowmjw/go-neurotools/pkg/signals"
	"github.com/leowmjw/go-neurotools/pkg/stgen"
)

func poissonList(t *testing.T) *signals.SpikeList {
	t.Helper()
	sl, err := stgen.GenerateList(stgen.NewSeeded(3), stgen.PoissonProcess{Rate: 15}, 5, 2000)
	require.NoError(t, err)
	require.NoError(t, sl.Append(9, signals.MustSpikeTrain(nil, signals.WithBounds(0, 2000))))
	return sl
}

func assertSameList(t *testing.T, want, got *signals.SpikeList) {
	t.Helper()
	require.Equal(t, want.IDs(), got.IDs())
	assert.Equal(t, want.TStart(), got.TStart())
	assert.Equal(t, want.TStop(), got.TStop())
	for _, id := range want.IDs() {
		x, _ := want.Train(id)
		y, _ := got.Train(id)
		assert.True(t, x.Equal(y), "train %d", id)
	}
}

func TestSpikes_RoundTrip(t *testing.T) {
	sl := poissonList(t)

	var buf bytes.Buffer
	require.NoError(t, WriteSpikes(&buf, sl))
	assert.True(t, strings.HasPrefix(buf.String(), "# t_start = 0\n# t_stop = 2000\n# ids = 0,1,2,3,4,9\n"))

	loaded, err := ReadSpikes(&buf, LoadOptions{})
	require.NoError(t, err)
	// The silent train survives through the ids header
	assertSameList(t, sl, loaded)
}

func TestSpikes_SaveLoad(t *testing.T) {
	sl := poissonList(t)
	path := filepath.Join(t.TempDir(), "spikes.gdf")

	require.NoError(t, SaveSpikes(path, sl))
	loaded, err := LoadSpikes(path, LoadOptions{})
	require.NoError(t, err)
	assertSameList(t, sl, loaded)

	_, err = LoadSpikes(filepath.Join(t.TempDir(), "missing"), LoadOptions{})
	assert.Error(t, err)
}

func TestReadSpikes_Options(t *testing.T) {
	sl := poissonList(t)
	var buf bytes.Buffer
	require.NoError(t, WriteSpikes(&buf, sl))
	data := buf.String()

	tests := []struct {
		name   string
		opts   LoadOptions
		ids    []int
		tStart float64
		tStop  float64
	}{
		{"all", LoadOptions{}, []int{0, 1, 2, 3, 4, 9}, 0, 2000},
		{"explicit ids", LoadOptions{IDs: []int{1, 3}}, []int{1, 3}, 0, 2000},
		{"first n", LoadOptions{FirstN: 2}, []int{0, 1}, 0, 2000},
		{"ids win over first n", LoadOptions{IDs: []int{4}, FirstN: 2}, []int{4}, 0, 2000},
		{"clamped", LoadOptions{TStart: ptr(500.0), TStop: ptr(1500.0)}, []int{0, 1, 2, 3, 4, 9}, 500, 1500},
		{"clamp cannot widen", LoadOptions{TStop: ptr(5000.0)}, []int{0, 1, 2, 3, 4, 9}, 0, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loaded, err := ReadSpikes(strings.NewReader(data), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.ids, loaded.IDs())
			assert.Equal(t, tt.tStart, loaded.TStart())
			assert.Equal(t, tt.tStop, loaded.TStop())
			for _, id := range loaded.IDs() {
				st, _ := loaded.Train(id)
				for _, ts := range st.Times() {
					assert.GreaterOrEqual(t, ts, tt.tStart)
					assert.LessOrEqual(t, ts, tt.tStop)
				}
			}
		})
	}
}

func TestReadSpikes_NoHeader(t *testing.T) {
	loaded, err := ReadSpikes(strings.NewReader("2\t5.5\n0 1.25\n\n# a comment\n2\t3\n"), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, loaded.IDs())
	assert.Equal(t, 5.5, loaded.TStop())
	st, _ := loaded.Train(2)
	assert.Equal(t, []float64{3, 5.5}, st.Times())
}

func TestReadSpikes_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"three fields", "1\t2\t3\n", ErrMalformedLine},
		{"bad id", "x\t2\n", ErrMalformedLine},
		{"bad time", "1\tabc\n", ErrMalformedLine},
		{"bad header", "# t_stop = soon\n1\t2\n", ErrMalformedHeader},
		{"bad ids", "# ids = 1,b\n", ErrMalformedHeader},
		{"negative time", "1\t-2\n", signals.ErrInvalidSpikeTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSpikes(strings.NewReader(tt.input), LoadOptions{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAnalog_RoundTrip(t *testing.T) {
	var samples []signals.Sample
	for id := range 3 {
		for i := range 100 {
			samples = append(samples, signals.Sample{ID: id, Value: float64(id*1000+i) / 7})
		}
	}
	al, err := signals.NewAnalogSignalList(samples, nil, 0.5, signals.WithTStart(10))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vm.dat")
	require.NoError(t, SaveAnalog(path, al))

	loaded, err := LoadAnalog(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, al.IDs(), loaded.IDs())
	assert.Equal(t, 0.5, loaded.DT())
	assert.Equal(t, 10.0, loaded.TStart())
	assert.Equal(t, 60.0, loaded.TStop())
	for _, id := range al.IDs() {
		x, _ := al.Signal(id)
		y, _ := loaded.Signal(id)
		assert.Equal(t, x.Values(), y.Values())
	}

	sliced, err := LoadAnalog(path, LoadOptions{IDs: []int{1}, TStart: ptr(20.0), TStop: ptr(30.0)})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, sliced.IDs())
	sig, _ := sliced.Signal(1)
	assert.Equal(t, 20, sig.Len())
}

func TestReadAnalog_MissingDT(t *testing.T) {
	_, err := ReadAnalog(strings.NewReader("0\t1\n0\t2\n"), LoadOptions{})
	assert.ErrorIs(t, err, ErrMissingDT)
}

func ptr(v float64) *float64 { return &v }
