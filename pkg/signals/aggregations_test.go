package signals

import (
	"errors"
	"math"
	"testing"
)

func TestAggregate(t *testing.T) {
	values := []float64{10, 20, 30, 40}

	tests := []struct {
		name       string
		aggType    AggregationType
		percentile float64
		expected   float64
	}{
		{"sum", Sum, 0, 100.0},
		{"avg", Avg, 0, 25.0},
		{"min", Min, 0, 10.0},
		{"max", Max, 0, 40.0},
		{"count", Count, 0, 4.0},
		{"median", Median, 0, 20.0},
		{"variance", Variance, 0, 125.0},
		{"stddev", StdDev, 0, math.Sqrt(125)},
		{"90th percentile", Percentile, 90.0, 40.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Aggregate(values, tt.aggType, tt.percentile)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if result.Type != tt.aggType {
				t.Errorf("Expected type %s, got %s", tt.aggType, result.Type)
			}

			if result.Count != 4 {
				t.Errorf("Expected count 4, got %d", result.Count)
			}

			if math.Abs(result.Value-tt.expected) > 0.1 {
				t.Errorf("Expected value %f, got %f", tt.expected, result.Value)
			}
		})
	}
}

func TestAggregate_EmptyAndUnknown(t *testing.T) {
	result, err := Aggregate(nil, Avg, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Value != 0 || result.Count != 0 {
		t.Errorf("Expected zero result, got %+v", result)
	}

	_, err = Aggregate([]float64{1}, "mode", 0)
	if !errors.Is(err, ErrUnknownAggregate) {
		t.Errorf("Expected ErrUnknownAggregate, got %v", err)
	}
}

func TestWindowedAggregate(t *testing.T) {
	times := []float64{0, 1, 2, 3, 10, 11}
	values := []float64{10, 20, 30, 40, 50, 60}
	windows := CreateTumblingWindows(0, 15, 5)

	results, err := WindowedAggregate(times, values, windows, Avg, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The middle window holds no values and is skipped
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	if results[0].Value != 25.0 {
		t.Errorf("First window average should be 25.0, got %f", results[0].Value)
	}

	if results[1].Value != 55.0 {
		t.Errorf("Last window average should be 55.0, got %f", results[1].Value)
	}

	if results[1].Window == nil || results[1].Window.Start != 10 {
		t.Errorf("Result should carry its window, got %+v", results[1].Window)
	}

	if _, err := WindowedAggregate(times, values[:2], windows, Avg, 0); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}
}
