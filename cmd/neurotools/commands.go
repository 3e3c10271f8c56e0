package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/leowmjw/go-neurotools/pkg/spikefile"
	"github.com/leowmjw/go-neurotools/pkg/stgen"
)

// app carries what subcommands share
type app struct {
	logger *slog.Logger
	dial   func(client.Options) (client.Client, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&app{dial: client.Dial})
}

func newRootCmdFor(a *app) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "neurotools",
		Short: "Generate and analyze spike trains",
		Long: `neurotools generates stochastic spike trains, synthesizes shot noise,
computes spike-train statistics and correlations, and runs parameter
sweeps on a Temporal worker.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level %q", logLevel)
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newGenerateCmd(a),
		newStatsCmd(a),
		newShotNoiseCmd(a),
		newXCorrCmd(a),
		newRateCmd(a),
		newSweepCmd(a),
	)
	return rootCmd
}

// loadFlags selects trains and bounds when reading a spike file
type loadFlags struct {
	ids    []int
	firstN int
	tStart float64
	tStop  float64
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntSliceVar(&f.ids, "ids", nil, "Only load these cell ids")
	cmd.Flags().IntVar(&f.firstN, "first-n", 0, "Only load the first n cell ids")
	cmd.Flags().Float64Var(&f.tStart, "t-start", 0, "Clamp the start of the recording (ms)")
	cmd.Flags().Float64Var(&f.tStop, "t-stop", 0, "Clamp the end of the recording (ms)")
}

func (f *loadFlags) options(cmd *cobra.Command) spikefile.LoadOptions {
	opts := spikefile.LoadOptions{IDs: f.ids, FirstN: f.firstN}
	if cmd.Flags().Changed("t-start") {
		opts.TStart = &f.tStart
	}
	if cmd.Flags().Changed("t-stop") {
		opts.TStop = &f.tStop
	}
	return opts
}

// processFlags describes a process on the command line
type processFlags struct {
	kind   string
	rate   float64
	tStart float64
	rates  []float64
	times  []float64
	shape  []float64
	scale  []float64
	a      []float64
	bq     []float64
	tau    float64
	tauS   float64
	tauR   float64
	qrqs   float64
}

func (f *processFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.kind, "kind", string(stgen.KindPoisson), "Process kind (poisson, inh_poisson, inh_gamma, adapting_markov, adapting_markov_2d)")
	flags.Float64Var(&f.rate, "rate", 10, "Constant rate in Hz (poisson)")
	flags.Float64Var(&f.tStart, "process-t-start", 0, "Start time in ms (poisson)")
	flags.Float64SliceVar(&f.rates, "rates", nil, "Segment rates in Hz (inh_poisson)")
	flags.Float64SliceVar(&f.times, "times", nil, "Segment start times in ms")
	flags.Float64SliceVar(&f.shape, "shape", nil, "Gamma shape per segment (inh_gamma)")
	flags.Float64SliceVar(&f.scale, "scale", nil, "Gamma scale per segment in s (inh_gamma)")
	flags.Float64SliceVar(&f.a, "a", nil, "Hazard amplitude per segment in Hz (markov)")
	flags.Float64SliceVar(&f.bq, "bq", nil, "Adaptation strength per segment (markov)")
	flags.Float64Var(&f.tau, "tau", 0, "Adaptation time constant in ms (adapting_markov)")
	flags.Float64Var(&f.tauS, "tau-s", 0, "Adaptation time constant in ms (adapting_markov_2d)")
	flags.Float64Var(&f.tauR, "tau-r", 0, "Refractory time constant in ms (adapting_markov_2d)")
	flags.Float64Var(&f.qrqs, "qrqs", 0, "Refractory to adaptation jump ratio (adapting_markov_2d)")
}

func (f *processFlags) spec() stgen.ProcessSpec {
	return stgen.ProcessSpec{
		Kind:   stgen.Kind(f.kind),
		Rate:   f.rate,
		TStart: f.tStart,
		Rates:  f.rates,
		Times:  f.times,
		Shape:  f.shape,
		Scale:  f.scale,
		A:      f.a,
		BQ:     f.bq,
		Tau:    f.tau,
		TauS:   f.tauS,
		TauR:   f.tauR,
		QrQs:   f.qrqs,
	}
}
