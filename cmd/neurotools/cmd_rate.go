package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leowmjw/go-neurotools/pkg/analysis"
	"github.com/leowmjw/go-neurotools/pkg/signals"
	"github.com/leowmjw/go-neurotools/pkg/spikefile"
)

func newRateCmd(a *app) *cobra.Command {
	var (
		load       loadFlags
		form       string
		sigma      float64
		resolution float64
		direction  int
		spectrum   bool
		out        string
	)

	cmd := &cobra.Command{
		Use:   "rate FILE",
		Short: "Kernel estimate of the instantaneous firing rate of each train",
		Long: `rate convolves each train, binned at --resolution ms, with a normalized
kernel (BOX, TRI, EPA, GAU, ALP or EXP) and writes the rates in Hz in the
analog text format. With --spectrum the amplitude spectrum of the
population mean rate is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sl, err := spikefile.LoadSpikes(args[0], load.options(cmd))
			if err != nil {
				return err
			}
			kernel, err := analysis.MakeKernel(analysis.KernelForm(form), sigma, resolution, direction)
			if err != nil {
				return err
			}

			rates, err := signals.NewAnalogSignalList(nil, nil, resolution)
			if err != nil {
				return err
			}
			for _, id := range sl.IDs() {
				train, _ := sl.Train(id)
				rate, err := analysis.InstantaneousRate(train, resolution, kernel)
				if err != nil {
					return fmt.Errorf("cell %d: %w", id, err)
				}
				if err := rates.Append(id, rate); err != nil {
					return err
				}
			}
			a.logger.Info("Estimated rates", "cells", rates.Len(), "kernel", kernel.Form, "bins", len(kernel.Values))

			if !spectrum {
				return writeAnalog(cmd.OutOrStdout(), out, rates)
			}

			freqs, amps, err := analysis.FrequencySpectrum(rates.Mean(), resolution)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "freq_hz\tamplitude")
			for i := range freqs {
				fmt.Fprintf(tw, "%.6g\t%.6g\n", freqs[i], amps[i])
			}
			return tw.Flush()
		},
	}

	load.register(cmd)
	cmd.Flags().StringVar(&form, "kernel", string(analysis.KernelGaussian), "Kernel form")
	cmd.Flags().Float64Var(&sigma, "sigma", 5, "Kernel standard deviation (ms)")
	cmd.Flags().Float64Var(&resolution, "resolution", 1, "Bin width (ms)")
	cmd.Flags().IntVar(&direction, "direction", 1, "1 for causal ALP/EXP kernels, -1 for reversed")
	cmd.Flags().BoolVar(&spectrum, "spectrum", false, "Print the spectrum of the mean rate")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when empty)")
	return cmd
}
