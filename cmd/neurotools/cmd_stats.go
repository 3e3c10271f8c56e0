package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leowmjw/go-neurotools/pkg/spikefile"
	"github.com/leowmjw/go-neurotools/pkg/temporal"
)

// Stats summarizes a spike file
type Stats struct {
	TStart float64            `json:"t_start"`
	TStop  float64            `json:"t_stop"`
	Cells  int                `json:"cells"`
	Spikes int                `json:"spikes"`
	Values map[string]float64 `json:"values"`
}

var allAnalyses = []string{
	temporal.AnalysisMeanRate,
	temporal.AnalysisCVISI,
	temporal.AnalysisFanoFactor,
	temporal.AnalysisCCZero,
	temporal.AnalysisPearson,
}

func newStatsCmd(a *app) *cobra.Command {
	var (
		load     loadFlags
		analyses []string
		timeBin  float64
		seed     uint64
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Print rate, regularity and correlation statistics of a spike file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sl, err := spikefile.LoadSpikes(args[0], load.options(cmd))
			if err != nil {
				return err
			}

			stats := Stats{
				TStart: sl.TStart(),
				TStop:  sl.TStop(),
				Cells:  sl.Len(),
				Spikes: sl.TotalSpikes(),
				Values: make(map[string]float64, len(analyses)),
			}
			for _, name := range analyses {
				pairwise := name == temporal.AnalysisCCZero || name == temporal.AnalysisPearson
				if pairwise && sl.Len() < 2 {
					a.logger.Warn("Skipping pairwise analysis", "analysis", name, "cells", sl.Len())
					continue
				}
				v, err := temporal.Analyze(sl, name, timeBin, seed)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				stats.Values[name] = v
			}

			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(stats)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "t_start\t%g\n", stats.TStart)
			fmt.Fprintf(tw, "t_stop\t%g\n", stats.TStop)
			fmt.Fprintf(tw, "cells\t%d\n", stats.Cells)
			fmt.Fprintf(tw, "spikes\t%d\n", stats.Spikes)
			for _, name := range analyses {
				if v, ok := stats.Values[name]; ok {
					fmt.Fprintf(tw, "%s\t%.6g\n", name, v)
				}
			}
			return tw.Flush()
		},
	}

	load.register(cmd)
	cmd.Flags().StringSliceVar(&analyses, "analyses", slices.Clone(allAnalyses), "Statistics to compute")
	cmd.Flags().Float64Var(&timeBin, "time-bin", temporal.DefaultTimeBin, "Bin width for pairwise statistics (ms)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for pair selection")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
