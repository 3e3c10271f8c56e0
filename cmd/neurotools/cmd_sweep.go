package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/leowmjw/go-neurotools/pkg/hcl"
	"github.com/leowmjw/go-neurotools/pkg/temporal"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		address   string
		namespace string
		taskQueue string
		asJSON    bool
		dryRun    bool
		noWait    bool
	)

	cmd := &cobra.Command{
		Use:   "sweep PATH",
		Short: "Run a parameter sweep described by an HCL file or directory",
		Long: `sweep reads an experiment from an HCL file, or merges every .hcl file of a
directory, and runs it as a Temporal workflow. The worker started by the
server must be polling the same task queue.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := loadExperiment(args[0])
			if err != nil {
				return err
			}
			*request = request.WithDefaults()
			if err := request.Validate(); err != nil {
				return err
			}

			if dryRun {
				points, err := request.Points()
				if err != nil {
					return err
				}
				return printPoints(cmd.OutOrStdout(), request, points)
			}

			c, err := a.dial(client.Options{HostPort: address, Namespace: namespace})
			if err != nil {
				return fmt.Errorf("unable to create Temporal client: %w", err)
			}
			defer c.Close()

			options := client.StartWorkflowOptions{
				ID:        temporal.GenerateSweepWorkflowID(request.ID),
				TaskQueue: taskQueue,
			}
			a.logger.Info("Executing sweep", "sweepID", request.ID, "workflowID", options.ID, "kind", request.Process.Kind)

			run, err := c.ExecuteWorkflow(cmd.Context(), options, temporal.SweepWorkflowName, *request)
			if err != nil {
				return fmt.Errorf("failed to execute sweep workflow: %w", err)
			}
			if noWait {
				fmt.Fprintf(cmd.OutOrStdout(), "workflow_id=%s run_id=%s\n", run.GetID(), run.GetRunID())
				return nil
			}

			var result temporal.SweepResult
			if err := run.Get(cmd.Context(), &result); err != nil {
				return fmt.Errorf("failed to get sweep result: %w", err)
			}
			return displayResult(cmd.OutOrStdout(), &result, asJSON)
		},
	}

	cmd.Flags().StringVar(&address, "temporal-addr", "localhost:7233", "Temporal server address")
	cmd.Flags().StringVar(&namespace, "namespace", "default", "Temporal namespace")
	cmd.Flags().StringVar(&taskQueue, "task-queue", temporal.TaskQueue, "Temporal task queue")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Display results as JSON")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the resolved sweep points without running them")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the workflow has started")
	return cmd
}

// loadExperiment parses an HCL file or merges a directory of them
func loadExperiment(path string) (*temporal.SweepRequest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if info.IsDir() {
		return hcl.ParseHCLDirectory(path)
	}
	if !hcl.IsHCLBasedOnExtension(path) {
		return nil, fmt.Errorf("file %s does not have the .hcl extension", path)
	}
	return hcl.ParseHCLFile(path)
}

func printPoints(w io.Writer, request *temporal.SweepRequest, points []temporal.SweepPointSpec) error {
	fmt.Fprintf(w, "sweep %s: %d points x %d trials x %d cells\n", request.ID, len(points), request.Trials, request.Cells)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "point\tparam\tvalue\tt_stop")
	for _, p := range points {
		param := p.Param
		if param == "" {
			param = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%g\t%g\n", p.Index, param, p.Value, p.TStop)
	}
	return tw.Flush()
}

func displayResult(w io.Writer, result *temporal.SweepResult, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	fmt.Fprintf(w, "sweep %s (%s)\n", result.ID, result.Kind)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range result.Points {
		names := make([]string, 0, len(p.Stats))
		for name := range p.Stats {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(tw, "%s=%g\ttrials=%d\tspikes=%d", p.Param, p.Value, p.Trials, p.Spikes)
		for _, name := range names {
			stat := p.Stats[name]
			fmt.Fprintf(tw, "\t%s=%.4g±%.2g", name, stat.Mean, stat.Std)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
