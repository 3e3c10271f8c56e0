package hcl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leowmjw/go-neurotools/pkg/temporal"
)

// AssertSweepsEqual compares two SweepRequest objects for equality in tests
func AssertSweepsEqual(t *testing.T, expected, actual *temporal.SweepRequest) {
	t.Helper()
	assert.Equal(t, expected.ID, actual.ID)
	assert.Equal(t, expected.Name, actual.Name)
	assert.Equal(t, expected.TStop, actual.TStop)
	assert.Equal(t, expected.Cells, actual.Cells)
	assert.Equal(t, expected.Trials, actual.Trials)
	assert.Equal(t, expected.Seed, actual.Seed)
	assert.Equal(t, expected.Analyses, actual.Analyses)
	assert.Equal(t, expected.TimeBin, actual.TimeBin)
	assert.Equal(t, expected.MaxConcurrency, actual.MaxConcurrency)
	assert.Equal(t, expected.Process, actual.Process)

	if expected.Sweep == nil || actual.Sweep == nil {
		assert.Equal(t, expected.Sweep == nil, actual.Sweep == nil, "sweep presence differs")
		return
	}
	assert.Equal(t, expected.Sweep.Param, actual.Sweep.Param)
	assert.InDeltaSlice(t, expected.Sweep.Values, actual.Sweep.Values, 1e-9)
}
