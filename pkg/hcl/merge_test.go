package hcl

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leowmjw/go-neurotools/pkg/temporal"
)

func TestHCLDirectoryMerging(t *testing.T) {
	t.Run("Split Directory", func(t *testing.T) {
		request, err := ParseHCLDirectory("testdata/split")
		require.NoError(t, err)

		jsonContent, err := os.ReadFile("testdata/split_merged.json")
		require.NoError(t, err)
		var expected temporal.SweepRequest
		require.NoError(t, json.Unmarshal(jsonContent, &expected))

		AssertSweepsEqual(t, &expected, request)
	})

	t.Run("Empty Directory", func(t *testing.T) {
		_, err := ParseHCLDirectory(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no HCL files found")
	})

	t.Run("Missing Directory", func(t *testing.T) {
		_, err := ParseHCLDirectory(filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to walk directory")
	})

	t.Run("Duplicate Attribute Across Files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.hcl"), "id = \"a\"\nt_stop = 10\ncells = 1\nprocess \"poisson\" { rate = 1 }\n")
		writeFile(t, filepath.Join(dir, "b.hcl"), "id = \"b\"\n")
		_, err := ParseHCLDirectory(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id")
	})
}

func TestMergeHCLFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.hcl")
	second := filepath.Join(dir, "second.hcl")
	// No trailing newline on the first file
	writeFile(t, first, `id = "joined"`)
	writeFile(t, second, "t_stop = 10\ncells = 2\nprocess \"poisson\" { rate = 3 }")

	file, err := MergeHCLFiles([]string{first, second})
	require.NoError(t, err)

	request, err := parseHCLSweepFromFile(file)
	require.NoError(t, err)
	assert.Equal(t, "joined", request.ID)
	assert.Equal(t, 2, request.Cells)
	assert.Equal(t, 3.0, request.Process.Rate)

	_, err = MergeHCLFiles([]string{filepath.Join(dir, "nope.hcl")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestParseHCLFile(t *testing.T) {
	request, err := ParseHCLFile("testdata/poisson_sweep.hcl")
	require.NoError(t, err)
	assert.Equal(t, "poisson-rate", request.ID)
	assert.Len(t, request.Sweep.Values, 5)

	_, err = ParseHCLFile("testdata/absent.hcl")
	require.Error(t, err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
