package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leowmjw/go-neurotools/pkg/analysis"
	"github.com/leowmjw/go-neurotools/pkg/spikefile"
	"github.com/leowmjw/go-neurotools/pkg/stgen"
)

func newXCorrCmd(a *app) *cobra.Command {
	var (
		load     loadFlags
		idA, idB int
		lag      float64
		binWidth float64
		shuffle  bool
		nPred    int
		seed     uint64
	)

	cmd := &cobra.Command{
		Use:   "xcorr FILE",
		Short: "Cross-correlogram of two trains of a spike file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sl, err := spikefile.LoadSpikes(args[0], load.options(cmd))
			if err != nil {
				return err
			}
			trainA, ok := sl.Train(idA)
			if !ok {
				return fmt.Errorf("no train with id %d", idA)
			}
			trainB, ok := sl.Train(idB)
			if !ok {
				return fmt.Errorf("no train with id %d", idB)
			}

			opts := analysis.CrossCorrelateOptions{Lag: lag}
			if shuffle {
				opts.Shuffle = true
				opts.NPred = nPred
				opts.Rng = stgen.NewSeeded(seed).Rand()
			}
			cc, err := analysis.CrossCorrelate(trainA, trainB, opts)
			if err != nil {
				return err
			}
			correlogram, err := cc.Histogram(binWidth)
			if err != nil {
				return err
			}
			a.logger.Info("Cross-correlated", "a", idA, "b", idB, "lag", cc.Lag, "pairs", len(cc.Diffs))

			coefficients := correlogram.Coefficients()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if correlogram.Predictor != nil {
				fmt.Fprintln(tw, "lag\tcount\tcoefficient\tpredictor")
			} else {
				fmt.Fprintln(tw, "lag\tcount\tcoefficient")
			}
			for i, center := range correlogram.Centers {
				fmt.Fprintf(tw, "%g\t%g\t%.6g", center, correlogram.Counts[i], coefficients[i])
				if correlogram.Predictor != nil {
					fmt.Fprintf(tw, "\t%.6g", correlogram.Predictor[i])
				}
				fmt.Fprintln(tw)
			}
			return tw.Flush()
		},
	}

	load.register(cmd)
	cmd.Flags().IntVar(&idA, "a", 0, "Id of the first train")
	cmd.Flags().IntVar(&idB, "b", 1, "Id of the second train")
	cmd.Flags().Float64Var(&lag, "lag", 0, "Maximum lag (ms); 0 picks one from the inter-spike intervals")
	cmd.Flags().Float64Var(&binWidth, "bin-width", 1, "Correlogram bin width (ms)")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "Add a shuffled-ISI predictor")
	cmd.Flags().IntVar(&nPred, "n-pred", 10, "Number of shuffled surrogates")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the shuffled surrogates")
	return cmd
}
