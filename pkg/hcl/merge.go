package hcl

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/leowmjw/go-neurotools/pkg/temporal"
)

// MergeHCLFiles concatenates several HCL files into one body, in the order given.
// An experiment can keep its process and sweep blocks in separate files.
func MergeHCLFiles(filePaths []string) (*hcl.File, error) {
	var merged bytes.Buffer
	for _, path := range filePaths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
		merged.Write(content)
		merged.WriteString("\n")
	}

	file, diags := hclparse.NewParser().ParseHCL(merged.Bytes(), "merged.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse merged HCL content: %s", diags.Error())
	}
	return file, nil
}

// ParseHCLFile reads a single experiment file.
func ParseHCLFile(path string) (*temporal.SweepRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	file, diags := hclparse.NewParser().ParseHCL(content, filepath.Base(path))
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return parseHCLSweepFromFile(file)
}

// ParseHCLDirectory merges every .hcl file under dirPath, in lexical order,
// and decodes the result as one experiment.
func ParseHCLDirectory(dirPath string) (*temporal.SweepRequest, error) {
	var hclFiles []string
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsHCLBasedOnExtension(d.Name()) {
			hclFiles = append(hclFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dirPath, err)
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no HCL files found in directory %s", dirPath)
	}
	slices.Sort(hclFiles)

	mergedFile, err := MergeHCLFiles(hclFiles)
	if err != nil {
		return nil, err
	}
	return parseHCLSweepFromFile(mergedFile)
}
