package analysis

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

func TestMakeKernel(t *testing.T) {
	tests := []struct {
		form      KernelForm
		symmetric bool
	}{
		{KernelBox, true},
		{KernelTriangle, true},
		{KernelEpanechnikov, true},
		{KernelGaussian, true},
		{KernelAlpha, false},
		{KernelExponential, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.form), func(t *testing.T) {
			k, err := MakeKernel(tt.form, 10, 1, 1)
			require.NoError(t, err)

			assert.InDelta(t, 1.0, floats.Sum(k.Values), 1e-12)
			assert.Equal(t, 1, len(k.Values)%2, "odd number of bins")
			assert.Equal(t, 1000.0, k.Norm)
			if tt.symmetric {
				assert.Equal(t, len(k.Values)/2, k.MedianIndex)
				rev := slices.Clone(k.Values)
				slices.Reverse(rev)
				assert.InDeltaSlice(t, k.Values, rev, 1e-15)
			}
		})
	}
}

func TestMakeKernel_Shapes(t *testing.T) {
	box, err := MakeKernel(KernelBox, 10, 1, 1)
	require.NoError(t, err)
	// w = 2*sqrt(3)*sigma = 34.6 ms
	assert.Len(t, box.Values, 35)
	assert.InDelta(t, 1.0/35, box.Values[0], 1e-15)

	gau, err := MakeKernel("gau", 5, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, KernelGaussian, gau.Form)
	assert.Len(t, gau.Values, 27)

	exp, err := MakeKernel(KernelExponential, 10, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, floats.MaxIdx(exp.Values))
	assert.InDelta(t, math.Exp(-0.1), exp.Values[1]/exp.Values[0], 1e-12)

	rev, err := MakeKernel(KernelExponential, 10, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, len(rev.Values)-1, floats.MaxIdx(rev.Values))
}

func TestMakeKernel_Errors(t *testing.T) {
	_, err := MakeKernel("FOO", 10, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidKernel)
	_, err = MakeKernel(KernelBox, 0, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidKernel)
	_, err = MakeKernel(KernelBox, 10, 1, 2)
	assert.ErrorIs(t, err, ErrInvalidKernel)
	// An Epanechnikov kernel narrower than a bin is all zeros
	_, err = MakeKernel(KernelEpanechnikov, 0.1, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidKernel)
}

func TestInstantaneousRate(t *testing.T) {
	st := signals.MustSpikeTrain(arange(0, 1000, 10), signals.WithBounds(0, 1000))
	k, err := MakeKernel(KernelGaussian, 20, 1, 1)
	require.NoError(t, err)

	rate, err := InstantaneousRate(st, 1, k)
	require.NoError(t, err)
	assert.Equal(t, 1000, rate.Len())
	assert.Equal(t, 0.0, rate.TStart())
	assert.InDelta(t, 100.0, rate.At(500), 5)
	// Edges lose the mass falling outside the train
	assert.Less(t, rate.At(0), rate.At(500))

	_, err = InstantaneousRate(st, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidKernel)
}
