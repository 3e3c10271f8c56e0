package temporal

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/leowmjw/go-neurotools/pkg/stgen"
)

// Analyses understood by AnalyzeActivity
const (
	AnalysisMeanRate   = "mean_rate"
	AnalysisCVISI      = "cv_isi"
	AnalysisFanoFactor = "fano_factor"
	AnalysisCCZero     = "cc_zero"
	AnalysisPearson    = "pearson"
)

// ParamTStop sweeps the simulated duration instead of a process parameter.
const ParamTStop = "t_stop"

// Defaults applied to a SweepRequest
const (
	DefaultTrials  = 1
	DefaultTimeBin = 5.0 // ms
	DefaultPairs   = 100
)

// MaxListWorkload bounds the expected spikes or grid steps of one generated list
const MaxListWorkload = 50_000_000

// DefaultAnalyses are run when a request names none
var DefaultAnalyses = []string{AnalysisMeanRate, AnalysisCVISI}

var (
	ErrInvalidSweep = errors.New("invalid sweep request")

	validate = validator.New()
)

// ParamSweep lists the values one parameter takes across a sweep
type ParamSweep struct {
	Param  string    `json:"param" validate:"required"`
	Values []float64 `json:"values" validate:"required,min=1"`
}

// SweepRequest describes a parameter sweep: for every sweep value, Trials
// spike lists of Cells trains are generated and analysed.
type SweepRequest struct {
	ID             string            `json:"id" validate:"required"`
	Name           string            `json:"name,omitempty"`
	Process        stgen.ProcessSpec `json:"process"`
	TStop          float64           `json:"t_stop" validate:"gt=0"`
	Cells          int               `json:"cells" validate:"min=1,max=10000"`
	Trials         int               `json:"trials,omitempty" validate:"min=0,max=1000"`
	Seed           uint64            `json:"seed"`
	Sweep          *ParamSweep       `json:"sweep,omitempty"`
	Analyses       []string          `json:"analyses,omitempty" validate:"dive,oneof=mean_rate cv_isi fano_factor cc_zero pearson"`
	TimeBin        float64           `json:"time_bin,omitempty" validate:"gte=0"`
	MaxConcurrency int               `json:"max_concurrency,omitempty" validate:"gte=0"`
}

// WithDefaults fills in unset optional fields
func (r SweepRequest) WithDefaults() SweepRequest {
	if r.Trials == 0 {
		r.Trials = DefaultTrials
	}
	if r.TimeBin == 0 {
		r.TimeBin = DefaultTimeBin
	}
	if len(r.Analyses) == 0 {
		r.Analyses = slices.Clone(DefaultAnalyses)
	}
	if r.MaxConcurrency == 0 {
		r.MaxConcurrency = MaxConcurrency
	}
	return r
}

// Validate checks the request without applying defaults
func (r SweepRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSweep, err)
	}
	points, err := r.Points()
	if err != nil {
		return err
	}
	for _, p := range points {
		workload := p.Process.Workload(p.TStop) * float64(r.Cells)
		if !(workload <= MaxListWorkload) {
			return fmt.Errorf("%w: point %d draws about %.3g events or grid steps per list, limit %d",
				ErrInvalidSweep, p.Index, workload, MaxListWorkload)
		}
	}
	if r.Cells < 2 && (slices.Contains(r.Analyses, AnalysisCCZero) || slices.Contains(r.Analyses, AnalysisPearson)) {
		return fmt.Errorf("%w: pairwise analyses need at least 2 cells", ErrInvalidSweep)
	}
	return nil
}

// SweepPointSpec is one resolved point of a sweep
type SweepPointSpec struct {
	Index   int               `json:"index"`
	Param   string            `json:"param,omitempty"`
	Value   float64           `json:"value"`
	Process stgen.ProcessSpec `json:"process"`
	TStop   float64           `json:"t_stop"`
}

// Points resolves the sweep into one process description per value. A
// request without a sweep has a single point.
func (r SweepRequest) Points() ([]SweepPointSpec, error) {
	if _, err := r.Process.Process(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSweep, err)
	}
	if r.Sweep == nil {
		return []SweepPointSpec{{Process: r.Process, TStop: r.TStop}}, nil
	}

	points := make([]SweepPointSpec, len(r.Sweep.Values))
	for i, v := range r.Sweep.Values {
		point := SweepPointSpec{Index: i, Param: r.Sweep.Param, Value: v, Process: r.Process, TStop: r.TStop}
		if r.Sweep.Param == ParamTStop {
			point.TStop = v
		} else {
			spec, err := r.Process.With(r.Sweep.Param, v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidSweep, err)
			}
			if _, err := spec.Process(); err != nil {
				return nil, fmt.Errorf("%w: %s=%v: %v", ErrInvalidSweep, r.Sweep.Param, v, err)
			}
			point.Process = spec
		}
		if !(point.TStop > point.Process.StartTime()) {
			return nil, fmt.Errorf("%w: t_stop %v not after t_start %v", ErrInvalidSweep, point.TStop, point.Process.StartTime())
		}
		points[i] = point
	}
	return points, nil
}

// GenerateTask asks for one spike list: Cells trains of one sweep point and trial
type GenerateTask struct {
	SweepID string            `json:"sweep_id"`
	Point   int               `json:"point"`
	Trial   int               `json:"trial"`
	Process stgen.ProcessSpec `json:"process"`
	TStop   float64           `json:"t_stop"`
	Cells   int               `json:"cells"`
	Seed    uint64            `json:"seed"`
}

// Key is the store key of the generated list
func (t GenerateTask) Key() string {
	return fmt.Sprintf("%s/%d/%d", t.SweepID, t.Point, t.Trial)
}

// CellSeed is the generator seed of one cell. Each trial owns Cells+1
// consecutive seeds; the last one selects pairs for the analyses.
func (t GenerateTask) CellSeed(cell int) uint64 {
	return t.Seed + uint64(t.Trial)*(uint64(t.Cells)+1) + uint64(cell)
}

// GenerateResult summarises a stored spike list
type GenerateResult struct {
	Key    string `json:"key"`
	Cells  int    `json:"cells"`
	Spikes int    `json:"spikes"`
}

// AnalyzeTask names a stored spike list and the analyses to run on it
type AnalyzeTask struct {
	Key      string   `json:"key"`
	Analyses []string `json:"analyses"`
	TimeBin  float64  `json:"time_bin"`
	Seed     uint64   `json:"seed"`
}

// AnalysisResult holds one value per analysis
type AnalysisResult struct {
	Key    string             `json:"key"`
	Values map[string]float64 `json:"values"`
}

// Stat summarises an analysis across trials
type Stat struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	N    int     `json:"n"`
}

// SweepPoint is the result for one sweep value
type SweepPoint struct {
	Param  string          `json:"param,omitempty"`
	Value  float64         `json:"value"`
	Trials int             `json:"trials"`
	Spikes int             `json:"spikes"`
	Keys   []string        `json:"keys"`
	Stats  map[string]Stat `json:"stats"`
}

// SweepResult is the stored outcome of a sweep
type SweepResult struct {
	ID     string       `json:"id"`
	Name   string       `json:"name,omitempty"`
	Kind   stgen.Kind   `json:"kind"`
	Points []SweepPoint `json:"points"`
}
