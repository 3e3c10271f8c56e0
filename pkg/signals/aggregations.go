package signals

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AggregationType represents different types of aggregations
type AggregationType string

const (
	Sum        AggregationType = "sum"
	Avg        AggregationType = "avg"
	Min        AggregationType = "min"
	Max        AggregationType = "max"
	Count      AggregationType = "count"
	StdDev     AggregationType = "stddev"
	Variance   AggregationType = "variance"
	Percentile AggregationType = "percentile"
	Median     AggregationType = "median"
)

// AggregationResult represents the result of an aggregation operation
type AggregationResult struct {
	Type   AggregationType `json:"type"`
	Value  float64         `json:"value"`
	Count  int             `json:"count"`
	Window *Window         `json:"window,omitempty"`
}

// Aggregate reduces values with aggType. Percentile is in [0, 100] and only
// used by the Percentile aggregation. Variance and StdDev are population
// statistics. An empty input gives a zero result.
func Aggregate(values []float64, aggType AggregationType, percentile float64) (AggregationResult, error) {
	result := AggregationResult{Type: aggType, Count: len(values)}
	if !aggType.valid() {
		return result, fmt.Errorf("%w: %q", ErrUnknownAggregate, aggType)
	}
	if len(values) == 0 {
		return result, nil
	}

	switch aggType {
	case Sum:
		result.Value = floats.Sum(values)
	case Avg:
		result.Value = stat.Mean(values, nil)
	case Min:
		result.Value = floats.Min(values)
	case Max:
		result.Value = floats.Max(values)
	case Count:
		result.Value = float64(len(values))
	case StdDev:
		result.Value = stat.PopStdDev(values, nil)
	case Variance:
		result.Value = stat.PopVariance(values, nil)
	case Percentile:
		result.Value = quantile(values, percentile/100)
	case Median:
		result.Value = quantile(values, 0.5)
	}

	return result, nil
}

func (a AggregationType) valid() bool {
	switch a {
	case Sum, Avg, Min, Max, Count, StdDev, Variance, Percentile, Median:
		return true
	}
	return false
}

func quantile(values []float64, p float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	p = min(max(p, 0), 1)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// WindowedAggregate aggregates the values whose times fall in each window.
// Windows without values are skipped.
func WindowedAggregate(times, values []float64, windows []Window, aggType AggregationType, percentile float64) ([]AggregationResult, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times, %d values", ErrLengthMismatch, len(times), len(values))
	}
	var results []AggregationResult

	for _, window := range windows {
		var windowData []float64
		for i, t := range times {
			if window.Contains(t) {
				windowData = append(windowData, values[i])
			}
		}
		if len(windowData) == 0 {
			continue
		}
		result, err := Aggregate(windowData, aggType, percentile)
		if err != nil {
			return nil, err
		}
		w := window
		result.Window = &w
		results = append(results, result)
	}

	return results, nil
}
