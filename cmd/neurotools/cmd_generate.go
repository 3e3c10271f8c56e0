package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leowmjw/go-neurotools/pkg/hcl"
	"github.com/leowmjw/go-neurotools/pkg/spikefile"
	"github.com/leowmjw/go-neurotools/pkg/stgen"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		process processFlags
		tStop   float64
		cells   int
		seed    uint64
		from    string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate independent spike trains from a stochastic process",
		Example: `  neurotools generate --kind poisson --rate 20 --cells 10 --t-stop 2000 --out spikes.txt
  neurotools generate --kind inh_gamma --times 0,1000 --shape 3,3 --scale 0.0033,0.0017 --t-stop 2000
  neurotools generate --from experiment.hcl --seed 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := process.spec()
			if from != "" {
				experiment, err := hcl.ParseHCLFile(from)
				if err != nil {
					return err
				}
				spec = experiment.Process
				if !cmd.Flags().Changed("t-stop") {
					tStop = experiment.TStop
				}
				if !cmd.Flags().Changed("cells") {
					cells = experiment.Cells
				}
				if !cmd.Flags().Changed("seed") {
					seed = experiment.Seed
				}
			}

			p, err := spec.Process()
			if err != nil {
				return err
			}
			sl, err := stgen.GenerateList(stgen.NewSeeded(seed), p, cells, tStop)
			if err != nil {
				return err
			}
			a.logger.Info("Generated spike list", "kind", spec.Kind, "cells", sl.Len(), "spikes", sl.TotalSpikes())

			if out == "" {
				return spikefile.WriteSpikes(cmd.OutOrStdout(), sl)
			}
			if err := spikefile.SaveSpikes(out, sl); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			a.logger.Info("Wrote spike file", "path", out)
			return nil
		},
	}

	process.register(cmd)
	cmd.Flags().Float64Var(&tStop, "t-stop", 1000, "End of the simulation (ms)")
	cmd.Flags().IntVar(&cells, "cells", 1, "Number of independent trains")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed")
	cmd.Flags().StringVar(&from, "from", "", "Take the process, t_stop, cells and seed from an HCL experiment")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when empty)")
	return cmd
}
