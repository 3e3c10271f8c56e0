package temporal

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the default queue the worker polls and the server submits to
const TaskQueue = "neurotools-task-queue"

// Registry is the part of a worker (or test environment) that workflows and
// activities are registered with
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register adds the sweep workflow and its activities under their names
func Register(r Registry, activities *ActivitiesImpl) {
	r.RegisterWorkflowWithOptions(SweepWorkflow, workflow.RegisterOptions{Name: SweepWorkflowName})
	r.RegisterActivityWithOptions(activities.GenerateActivity, activity.RegisterOptions{Name: GenerateActivityName})
	r.RegisterActivityWithOptions(activities.AnalyzeActivity, activity.RegisterOptions{Name: AnalyzeActivityName})
	r.RegisterActivityWithOptions(activities.StoreSummaryActivity, activity.RegisterOptions{Name: StoreSummaryActivityName})
}
