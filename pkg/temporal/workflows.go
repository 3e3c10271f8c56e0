package temporal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

const (
	// Workflow IDs
	SweepWorkflowIDPrefix = "sweep-"

	// Workflow names
	SweepWorkflowName = "SweepWorkflow"

	// Activity names
	GenerateActivityName     = "generate-spikes"
	AnalyzeActivityName      = "analyze-spikes"
	StoreSummaryActivityName = "store-summary"

	// Application error types
	InvalidSweepErrorType = "InvalidSweepRequest"
)

// SweepWorkflow runs a parameter sweep. Every (point, trial) pair generates
// and analyses one spike list; at most MaxConcurrency pairs run at once.
func SweepWorkflow(ctx workflow.Context, request SweepRequest) (*SweepResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting sweep workflow", "sweepID", request.ID, "kind", request.Process.Kind)

	request = request.WithDefaults()
	if err := request.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), InvalidSweepErrorType, err)
	}
	points, err := request.Points()
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), InvalidSweepErrorType, err)
	}

	ao := workflow.ActivityOptions{
		ScheduleToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	tasks := request.tasks(points)
	generated := make([]*GenerateResult, len(tasks))
	analysed := make([]*AnalysisResult, len(tasks))
	errs := make([]error, len(tasks))

	slots := workflow.NewBufferedChannel(ctx, request.MaxConcurrency)
	wg := workflow.NewWaitGroup(ctx)
	for i, task := range tasks {
		slots.Send(ctx, true)
		wg.Add(1)
		workflow.Go(ctx, func(gCtx workflow.Context) {
			defer wg.Done()
			defer func() {
				var token bool
				slots.Receive(gCtx, &token)
			}()
			generated[i], analysed[i], errs[i] = runTrial(gCtx, task, request)
		})
	}
	wg.Wait(ctx)

	if err := errors.Join(errs...); err != nil {
		logger.Error("Sweep failed", "sweepID", request.ID, "error", err)
		return nil, fmt.Errorf("sweep %s: %w", request.ID, err)
	}

	result, err := assembleSweepResult(request, points, generated, analysed)
	if err != nil {
		return nil, err
	}

	if err := workflow.ExecuteActivity(ctx, StoreSummaryActivityName, result).Get(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to store summary: %w", err)
	}

	logger.Info("Sweep completed", "sweepID", request.ID, "points", len(result.Points), "trials", len(tasks))
	return result, nil
}

func runTrial(ctx workflow.Context, task GenerateTask, request SweepRequest) (*GenerateResult, *AnalysisResult, error) {
	var generated *GenerateResult
	if err := workflow.ExecuteActivity(ctx, GenerateActivityName, task).Get(ctx, &generated); err != nil {
		return nil, nil, fmt.Errorf("failed to generate %s: %w", task.Key(), err)
	}

	analyze := AnalyzeTask{
		Key:      generated.Key,
		Analyses: request.Analyses,
		TimeBin:  request.TimeBin,
		Seed:     task.CellSeed(task.Cells),
	}
	var analysed *AnalysisResult
	if err := workflow.ExecuteActivity(ctx, AnalyzeActivityName, analyze).Get(ctx, &analysed); err != nil {
		return nil, nil, fmt.Errorf("failed to analyze %s: %w", task.Key(), err)
	}
	return generated, analysed, nil
}

// tasks lists one GenerateTask per (point, trial), point-major.
func (r SweepRequest) tasks(points []SweepPointSpec) []GenerateTask {
	tasks := make([]GenerateTask, 0, len(points)*r.Trials)
	for _, p := range points {
		for trial := range r.Trials {
			tasks = append(tasks, GenerateTask{
				SweepID: r.ID,
				Point:   p.Index,
				Trial:   trial,
				Process: p.Process,
				TStop:   p.TStop,
				Cells:   r.Cells,
				Seed:    r.Seed,
			})
		}
	}
	return tasks
}

// assembleSweepResult groups trial results by point. Results arrive in the
// order of SweepRequest.tasks.
func assembleSweepResult(request SweepRequest, points []SweepPointSpec, generated []*GenerateResult, analysed []*AnalysisResult) (*SweepResult, error) {
	result := &SweepResult{
		ID:     request.ID,
		Name:   request.Name,
		Kind:   request.Process.Kind,
		Points: make([]SweepPoint, len(points)),
	}
	for i, p := range points {
		point := SweepPoint{Param: p.Param, Value: p.Value, Trials: request.Trials, Stats: make(map[string]Stat)}
		trials := analysed[i*request.Trials : (i+1)*request.Trials]
		for _, g := range generated[i*request.Trials : (i+1)*request.Trials] {
			point.Spikes += g.Spikes
			point.Keys = append(point.Keys, g.Key)
		}

		for _, name := range request.Analyses {
			values := make([]float64, 0, len(trials))
			for _, t := range trials {
				if v, ok := t.Values[name]; ok {
					values = append(values, v)
				}
			}
			mean, err := signals.Aggregate(values, signals.Avg, 0)
			if err != nil {
				return nil, err
			}
			std, err := signals.Aggregate(values, signals.StdDev, 0)
			if err != nil {
				return nil, err
			}
			point.Stats[name] = Stat{Mean: mean.Value, Std: std.Value, N: mean.Count}
		}
		result.Points[i] = point
	}
	return result, nil
}

// GenerateSweepWorkflowID creates a unique workflow ID for a sweep
func GenerateSweepWorkflowID(sweepID string) string {
	return fmt.Sprintf("%s%s-%s", SweepWorkflowIDPrefix, sweepID, uuid.NewString())
}
