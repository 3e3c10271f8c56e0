// Package hcl decodes sweep experiments written in HCL.
package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/leowmjw/go-neurotools/pkg/stgen"
	"github.com/leowmjw/go-neurotools/pkg/temporal"
)

// HCLExperiment represents the HCL sweep structure
type HCLExperiment struct {
	ID             string     `hcl:"id"`
	Name           *string    `hcl:"name,optional"`
	TStop          float64    `hcl:"t_stop"`
	Cells          int        `hcl:"cells"`
	Trials         *int       `hcl:"trials,optional"`
	Seed           *uint64    `hcl:"seed,optional"`
	Analyses       []string   `hcl:"analyses,optional"`
	TimeBin        *float64   `hcl:"time_bin,optional"`
	MaxConcurrency *int       `hcl:"max_concurrency,optional"`
	Process        HCLProcess `hcl:"process,block"`
	Sweep          *HCLSweep  `hcl:"sweep,block"`
}

// HCLProcess is a process block labelled with its kind, e.g. process "inh_gamma" { ... }
type HCLProcess struct {
	Kind   string    `hcl:"kind,label"`
	Rate   *float64  `hcl:"rate,optional"`
	TStart *float64  `hcl:"t_start,optional"`
	Rates  []float64 `hcl:"rates,optional"`
	Shape  []float64 `hcl:"shape,optional"`
	Scale  []float64 `hcl:"scale,optional"`
	A      []float64 `hcl:"a,optional"`
	BQ     []float64 `hcl:"bq,optional"`
	Times  []float64 `hcl:"times,optional"`
	Tau    *float64  `hcl:"tau,optional"`
	TauS   *float64  `hcl:"tau_s,optional"`
	TauR   *float64  `hcl:"tau_r,optional"`
	QrQs   *float64  `hcl:"qrqs,optional"`
}

// HCLSweep is a sweep block labelled with the swept parameter
type HCLSweep struct {
	Param  string    `hcl:"param,label"`
	Values []float64 `hcl:"values"`
}

// ParseHCLSweep parses HCL content and converts it to a temporal.SweepRequest
func ParseHCLSweep(hclContent string) (*temporal.SweepRequest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL([]byte(hclContent), "sweep.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return parseHCLSweepFromFile(file)
}

func parseHCLSweepFromFile(file *hcl.File) (*temporal.SweepRequest, error) {
	var experiment HCLExperiment
	diags := gohcl.DecodeBody(file.Body, newEvalContext(), &experiment)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL body: %s", diags.Error())
	}
	return convertHCLExperiment(&experiment), nil
}

func convertHCLExperiment(e *HCLExperiment) *temporal.SweepRequest {
	request := &temporal.SweepRequest{
		ID:       e.ID,
		TStop:    e.TStop,
		Cells:    e.Cells,
		Analyses: e.Analyses,
		Process:  convertHCLProcess(e.Process),
	}
	if e.Name != nil {
		request.Name = *e.Name
	}
	if e.Trials != nil {
		request.Trials = *e.Trials
	}
	if e.Seed != nil {
		request.Seed = *e.Seed
	}
	if e.TimeBin != nil {
		request.TimeBin = *e.TimeBin
	}
	if e.MaxConcurrency != nil {
		request.MaxConcurrency = *e.MaxConcurrency
	}
	if e.Sweep != nil {
		request.Sweep = &temporal.ParamSweep{Param: e.Sweep.Param, Values: e.Sweep.Values}
	}
	return request
}

func convertHCLProcess(p HCLProcess) stgen.ProcessSpec {
	spec := stgen.ProcessSpec{
		Kind:  stgen.Kind(p.Kind),
		Rates: p.Rates,
		Shape: p.Shape,
		Scale: p.Scale,
		A:     p.A,
		BQ:    p.BQ,
		Times: p.Times,
	}
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&spec.Rate, p.Rate)
	set(&spec.TStart, p.TStart)
	set(&spec.Tau, p.Tau)
	set(&spec.TauS, p.TauS)
	set(&spec.TauR, p.TauR)
	set(&spec.QrQs, p.QrQs)
	return spec
}

// IsHCL attempts to detect if the given content is in HCL format
func IsHCL(content []byte) bool {
	_, diags := hclsyntax.ParseConfig(content, "", hcl.Pos{Line: 1, Column: 1})
	return !diags.HasErrors()
}
