package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/leowmjw/go-neurotools/pkg/analysis"
	"github.com/leowmjw/go-neurotools/pkg/metrics"
	"github.com/leowmjw/go-neurotools/pkg/signals"
	"github.com/leowmjw/go-neurotools/pkg/stgen"
	"github.com/leowmjw/go-neurotools/pkg/store"
)

// MaxConcurrency is the default number of trials a sweep runs at once
const MaxConcurrency = 10

// Activities interface defines all the activities used by workflows
type Activities interface {
	GenerateActivity(ctx context.Context, task GenerateTask) (*GenerateResult, error)
	AnalyzeActivity(ctx context.Context, task AnalyzeTask) (*AnalysisResult, error)
	StoreSummaryActivity(ctx context.Context, result *SweepResult) error
}

// ActivitiesImpl implements the Activities interface
type ActivitiesImpl struct {
	logger *slog.Logger
	store  store.SpikeStore
}

// NewActivitiesImpl creates a new activities implementation
func NewActivitiesImpl(logger *slog.Logger, spikeStore store.SpikeStore) *ActivitiesImpl {
	return &ActivitiesImpl{
		logger: logger,
		store:  spikeStore,
	}
}

// GenerateActivity draws one train per cell, each from its own seeded
// generator, and stores the list under task.Key().
func (a *ActivitiesImpl) GenerateActivity(ctx context.Context, task GenerateTask) (*GenerateResult, error) {
	a.logger.Info("Generating spike list", "key", task.Key(), "kind", task.Process.Kind, "cells", task.Cells)

	process, err := task.Process.Process()
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), InvalidSweepErrorType, err)
	}

	trains := make(map[int]*signals.SpikeTrain, task.Cells)
	spikes := 0
	for cell := range task.Cells {
		st, err := process.Generate(stgen.NewSeeded(task.CellSeed(cell)), task.TStop)
		if err != nil {
			return nil, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("cell %d: %v", cell, err), InvalidSweepErrorType, err)
		}
		trains[cell] = st
		spikes += st.Len()
	}
	sl, err := signals.FromTrains(trains, signals.WithBounds(task.Process.StartTime(), task.TStop))
	if err != nil {
		return nil, fmt.Errorf("failed to build spike list: %w", err)
	}

	if err := a.store.Put(ctx, task.Key(), sl); err != nil {
		a.logger.Error("Failed to store spike list", "key", task.Key(), "error", err)
		return nil, fmt.Errorf("failed to store spike list: %w", err)
	}

	kind := string(task.Process.Kind)
	metrics.TrainsGenerated.WithLabelValues(kind).Add(float64(task.Cells))
	metrics.SpikesGenerated.WithLabelValues(kind).Add(float64(spikes))

	a.logger.Info("Stored spike list", "key", task.Key(), "spikes", spikes)
	return &GenerateResult{Key: task.Key(), Cells: task.Cells, Spikes: spikes}, nil
}

// AnalyzeActivity loads a stored list and runs the requested analyses
func (a *ActivitiesImpl) AnalyzeActivity(ctx context.Context, task AnalyzeTask) (*AnalysisResult, error) {
	a.logger.Info("Analyzing spike list", "key", task.Key, "analyses", task.Analyses)

	sl, err := a.store.Get(ctx, task.Key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), "SpikeListNotFound", err)
		}
		return nil, fmt.Errorf("failed to load spike list: %w", err)
	}

	result := &AnalysisResult{Key: task.Key, Values: make(map[string]float64, len(task.Analyses))}
	for _, name := range task.Analyses {
		start := time.Now()
		v, err := Analyze(sl, name, task.TimeBin, task.Seed)
		if err != nil {
			a.logger.Error("Analysis failed", "key", task.Key, "analysis", name, "error", err)
			return nil, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("%s: %v", name, err), InvalidSweepErrorType, err)
		}
		metrics.AnalysisDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		result.Values[name] = v
	}

	a.logger.Info("Analyzed spike list", "key", task.Key, "values", result.Values)
	return result, nil
}

// Analyze computes one named statistic of a spike list. Pairwise analyses
// draw DefaultPairs distinct-id pairs seeded by seed.
func Analyze(sl *signals.SpikeList, name string, timeBin float64, seed uint64) (float64, error) {
	switch name {
	case AnalysisMeanRate:
		return sl.MeanRate(), nil
	case AnalysisCVISI:
		agg, err := signals.Aggregate(sl.CVISI(), signals.Avg, 0)
		return agg.Value, err
	case AnalysisFanoFactor:
		agg, err := sl.Aggregate((*signals.SpikeTrain).FanoFactorISI, signals.Avg, 0)
		return agg.Value, err
	case AnalysisCCZero:
		return analysis.PairwiseCCZero(sl, sl, randomPairs(seed), DefaultPairs, timeBin)
	case AnalysisPearson:
		mean, _, err := analysis.PairwisePearson(sl, sl, randomPairs(seed), DefaultPairs, timeBin)
		return mean, err
	default:
		return 0, fmt.Errorf("%w: unknown analysis %q", ErrInvalidSweep, name)
	}
}

func randomPairs(seed uint64) analysis.PairSelector {
	return analysis.RandomPairs{Rng: stgen.NewSeeded(seed).Rand(), NoAuto: true}
}

// StoreSummaryActivity stores the sweep result as JSON under its ID
func (a *ActivitiesImpl) StoreSummaryActivity(ctx context.Context, result *SweepResult) error {
	a.logger.Info("Storing sweep summary", "sweepID", result.ID, "points", len(result.Points))

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := a.store.PutSummary(ctx, result.ID, data); err != nil {
		a.logger.Error("Failed to store summary", "sweepID", result.ID, "error", err)
		return fmt.Errorf("failed to store summary: %w", err)
	}
	return nil
}

// LoadSummary reads a stored sweep result
func LoadSummary(ctx context.Context, spikeStore store.SpikeStore, sweepID string) (*SweepResult, error) {
	data, err := spikeStore.GetSummary(ctx, sweepID)
	if err != nil {
		return nil, err
	}
	var result SweepResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode summary %s: %w", sweepID, err)
	}
	return &result, nil
}
