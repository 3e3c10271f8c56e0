package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leowmjw/go-neurotools/pkg/signals"
	"github.com/leowmjw/go-neurotools/pkg/spikefile"
	"github.com/leowmjw/go-neurotools/pkg/stgen"
)

func newShotNoiseCmd(a *app) *cobra.Command {
	var (
		load      loadFlags
		q, tau    float64
		dt        float64
		staWindow float64
		out       string
		staOut    string
	)

	cmd := &cobra.Command{
		Use:   "shotnoise FILE",
		Short: "Synthesize exponential shot noise driven by each train of a spike file",
		Long: `shotnoise convolves every train with q*exp(-t/tau) sampled every dt ms and
writes the result in the analog text format. With --sta-window the
spike-triggered average of each signal over its own spikes is computed;
for pure shot noise it recovers the exponential kernel.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sl, err := spikefile.LoadSpikes(args[0], load.options(cmd))
			if err != nil {
				return err
			}

			noise, err := signals.NewAnalogSignalList(nil, nil, dt)
			if err != nil {
				return err
			}
			sta, err := signals.NewAnalogSignalList(nil, nil, dt)
			if err != nil {
				return err
			}
			for _, id := range sl.IDs() {
				train, _ := sl.Train(id)
				signal, err := stgen.ShotNoise(train, q, tau, dt, sl.TStart(), sl.TStop())
				if err != nil {
					return fmt.Errorf("cell %d: %w", id, err)
				}
				if err := noise.Append(id, signal); err != nil {
					return err
				}
				if staWindow <= 0 {
					continue
				}
				avg, used := signal.EventTriggeredAverage(train.Times(), 0, staWindow)
				a.logger.Info("Spike-triggered average", "id", id, "windows", used)
				if used == 0 {
					continue
				}
				avgSignal, err := signals.NewAnalogSignal(avg, dt)
				if err != nil {
					return err
				}
				if err := sta.Append(id, avgSignal); err != nil {
					return err
				}
			}

			if staOut != "" {
				if err := spikefile.SaveAnalog(staOut, sta); err != nil {
					return fmt.Errorf("failed to write %s: %w", staOut, err)
				}
			}
			return writeAnalog(cmd.OutOrStdout(), out, noise)
		},
	}

	load.register(cmd)
	cmd.Flags().Float64Var(&q, "q", 1, "Amplitude of one shot")
	cmd.Flags().Float64Var(&tau, "tau", 10, "Decay time constant (ms)")
	cmd.Flags().Float64Var(&dt, "dt", 0.1, "Sampling step (ms)")
	cmd.Flags().Float64Var(&staWindow, "sta-window", 0, "Spike-triggered average window after each spike (ms)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when empty)")
	cmd.Flags().StringVar(&staOut, "sta-out", "", "Write spike-triggered averages to this file")
	return cmd
}

func writeAnalog(stdout io.Writer, path string, al *signals.AnalogSignalList) error {
	if path == "" {
		return spikefile.WriteAnalog(stdout, al)
	}
	if err := spikefile.SaveAnalog(path, al); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
