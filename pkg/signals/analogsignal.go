package signals

import (
	"fmt"
	"iter"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// boundsTolerance is the relative slack allowed when checking that
// len(signal) matches (t_stop - t_start)/dt.
const boundsTolerance = 1e-6

// AnalogSignal is a uniformly sampled signal. Sample i covers
// [t_start + i*dt, t_start + (i+1)*dt).
type AnalogSignal struct {
	values []float64
	dt     float64
	tStart float64
	tStop  float64
}

// NewAnalogSignal wraps a copy of values sampled every dt ms. t_start defaults
// to 0 and t_stop to t_start + len(values)*dt; explicit bounds must agree
// with the number of samples.
func NewAnalogSignal(values []float64, dt float64, opts ...Option) (*AnalogSignal, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDT, dt)
	}
	b := collectBounds(opts)
	tStart := 0.0
	if b.tStart != nil {
		tStart = *b.tStart
	}
	tStop := tStart + float64(len(values))*dt
	if b.tStop != nil {
		tStop = *b.tStop
	}
	if math.IsNaN(tStart) || math.IsNaN(tStop) || tStart > tStop {
		return nil, fmt.Errorf("%w: t_start=%v t_stop=%v", ErrInvalidBounds, tStart, tStop)
	}
	expected := (tStop - tStart) / dt
	if math.Abs(expected-float64(len(values))) > boundsTolerance*max(1, expected) {
		return nil, fmt.Errorf("%w: %d samples at dt=%v do not span [%v, %v]",
			ErrInvalidBounds, len(values), dt, tStart, tStop)
	}
	return &AnalogSignal{values: slices.Clone(values), dt: dt, tStart: tStart, tStop: tStop}, nil
}

func newSignal(values []float64, dt, tStart float64) *AnalogSignal {
	return &AnalogSignal{values: values, dt: dt, tStart: tStart, tStop: tStart + float64(len(values))*dt}
}

func (s *AnalogSignal) DT() float64     { return s.dt }
func (s *AnalogSignal) TStart() float64 { return s.tStart }
func (s *AnalogSignal) TStop() float64  { return s.tStop }
func (s *AnalogSignal) Len() int        { return len(s.values) }

// Duration is t_stop - t_start.
func (s *AnalogSignal) Duration() float64 { return s.tStop - s.tStart }

// Values returns a copy of the samples.
func (s *AnalogSignal) Values() []float64 { return slices.Clone(s.values) }

// At returns sample i.
func (s *AnalogSignal) At(i int) float64 { return s.values[i] }

func (s *AnalogSignal) Copy() *AnalogSignal {
	return &AnalogSignal{values: slices.Clone(s.values), dt: s.dt, tStart: s.tStart, tStop: s.tStop}
}

func (s *AnalogSignal) String() string {
	return fmt.Sprintf("AnalogSignal(n=%d, dt=%g, t_start=%g, t_stop=%g)", len(s.values), s.dt, s.tStart, s.tStop)
}

// TimeAxis returns the sample start times.
func (s *AnalogSignal) TimeAxis() []float64 {
	axis := make([]float64, len(s.values))
	for i := range axis {
		axis[i] = s.tStart + float64(i)*s.dt
	}
	return axis
}

// index converts t to the nearest sample boundary, clamped to [0, len].
func (s *AnalogSignal) index(t float64) int {
	i := int(math.Round((t - s.tStart) / s.dt))
	return min(max(i, 0), len(s.values))
}

// TimeSlice returns the samples covering [tMin, tMax).
func (s *AnalogSignal) TimeSlice(tMin, tMax float64) *AnalogSignal {
	i, j := s.index(tMin), s.index(tMax)
	j = max(i, j)
	return newSignal(slices.Clone(s.values[i:j]), s.dt, s.tStart+float64(i)*s.dt)
}

// TimeOffset shifts the signal in time.
func (s *AnalogSignal) TimeOffset(offset float64) {
	s.tStart += offset
	s.tStop += offset
}

// Mean of the samples.
func (s *AnalogSignal) Mean() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return stat.Mean(s.values, nil)
}

// Std is the population standard deviation of the samples.
func (s *AnalogSignal) Std() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return stat.PopStdDev(s.values, nil)
}

// Max of the samples, 0 for an empty signal.
func (s *AnalogSignal) Max() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return floats.Max(s.values)
}

// Cov is the sample covariance with another signal of the same length.
func (s *AnalogSignal) Cov(other *AnalogSignal) (float64, error) {
	if other == nil {
		return 0, ErrNilSignal
	}
	if len(s.values) != len(other.values) {
		return 0, fmt.Errorf("%w: %d and %d samples", ErrLengthMismatch, len(s.values), len(other.values))
	}
	if len(s.values) < 2 {
		return 0, nil
	}
	return stat.Covariance(s.values, other.values, nil), nil
}

// ThresholdDetection returns, as a spike train, the times at which the signal
// rises above threshold. A signal starting above threshold counts as a crossing
// at t_start. A signal with a negative t_start cannot hold a spike train and
// fails with ErrInvalidBounds.
func (s *AnalogSignal) ThresholdDetection(threshold float64) (*SpikeTrain, error) {
	var events []float64
	above := false
	for i, v := range s.values {
		now := v > threshold
		if now && !above {
			events = append(events, s.tStart+float64(i)*s.dt)
		}
		above = now
	}
	return NewSpikeTrain(events, WithBounds(s.tStart, s.tStop))
}

// SliceByEvents returns, per event, the part of the signal within
// [event - tMin, event + tMax), clipped to the signal bounds.
func (s *AnalogSignal) SliceByEvents(events []float64, tMin, tMax float64) []*AnalogSignal {
	out := make([]*AnalogSignal, len(events))
	for i, ev := range events {
		out[i] = s.TimeSlice(ev-tMin, ev+tMax)
	}
	return out
}

// SliceExcludeEvents yields the segments of the signal left after cutting
// out [event - tMin, event + tMax] around every event.
func (s *AnalogSignal) SliceExcludeEvents(events []float64, tMin, tMax float64) iter.Seq[*AnalogSignal] {
	sorted := slices.Clone(events)
	slices.Sort(sorted)
	return func(yield func(*AnalogSignal) bool) {
		cursor := s.tStart
		for _, ev := range sorted {
			if end := ev - tMin; end > cursor {
				if !yield(s.TimeSlice(cursor, end)) {
					return
				}
			}
			cursor = max(cursor, ev+tMax)
		}
		if cursor < s.tStop {
			yield(s.TimeSlice(cursor, s.tStop))
		}
	}
}

// EventTriggeredAverage averages windows of (tMin + tMax) ms starting at the
// first sample at or after event - tMin. Windows that do not fit inside the
// signal are dropped. It returns the average and the number of windows used;
// with no usable window the average is nil.
func (s *AnalogSignal) EventTriggeredAverage(events []float64, tMin, tMax float64) ([]float64, int) {
	width := int(math.Round((tMin + tMax) / s.dt))
	if width <= 0 {
		return nil, 0
	}
	sum := make([]float64, width)
	used := 0
	for _, ev := range events {
		start := int(math.Ceil((ev-tMin-s.tStart)/s.dt - 1e-9))
		if start < 0 || start+width > len(s.values) {
			continue
		}
		floats.Add(sum, s.values[start:start+width])
		used++
	}
	if used == 0 {
		return nil, 0
	}
	floats.Scale(1/float64(used), sum)
	return sum, used
}

// WindowedMean averages the samples inside each window.
func (s *AnalogSignal) WindowedMean(windows []Window) ([]AggregationResult, error) {
	return WindowedAggregate(s.TimeAxis(), s.values, windows, Avg, 0)
}
