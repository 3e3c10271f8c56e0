package signals

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Sample is one (identifier, value) pair of an interleaved recording.
type Sample struct {
	ID    int     `json:"id"`
	Value float64 `json:"value"`
}

// AnalogSignalList groups analog signals sharing dt, t_start and t_stop.
type AnalogSignalList struct {
	signals map[int]*AnalogSignal
	dt      float64
	tStart  float64
	tStop   float64
}

// NewAnalogSignalList builds one signal per identifier from samples listed in
// time order per identifier. If ids is non-nil only those identifiers are kept.
func NewAnalogSignalList(samples []Sample, ids []int, dt float64, opts ...Option) (*AnalogSignalList, error) {
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDT, dt)
	}
	var keep map[int]bool
	if ids != nil {
		keep = make(map[int]bool, len(ids))
		for _, id := range ids {
			keep[id] = true
		}
	}
	byID := make(map[int][]float64)
	for _, s := range samples {
		if keep != nil && !keep[s.ID] {
			continue
		}
		byID[s.ID] = append(byID[s.ID], s.Value)
	}

	al := &AnalogSignalList{signals: make(map[int]*AnalogSignal, len(byID)), dt: dt}
	samplesPerSignal := -1
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		sig, err := NewAnalogSignal(byID[id], dt, opts...)
		if err != nil {
			return nil, fmt.Errorf("id %d: %w", id, err)
		}
		if samplesPerSignal < 0 {
			samplesPerSignal = sig.Len()
			al.tStart, al.tStop = sig.tStart, sig.tStop
		} else if sig.Len() != samplesPerSignal {
			return nil, fmt.Errorf("%w: id %d has %d samples, want %d", ErrLengthMismatch, id, sig.Len(), samplesPerSignal)
		}
		al.signals[id] = sig
	}
	if samplesPerSignal < 0 {
		b := collectBounds(opts)
		if b.tStart != nil {
			al.tStart = *b.tStart
		}
		al.tStop = al.tStart
		if b.tStop != nil {
			al.tStop = *b.tStop
		}
	}
	return al, nil
}

func (al *AnalogSignalList) DT() float64     { return al.dt }
func (al *AnalogSignalList) TStart() float64 { return al.tStart }
func (al *AnalogSignalList) TStop() float64  { return al.tStop }
func (al *AnalogSignalList) Len() int        { return len(al.signals) }

// IDs returns the identifiers in ascending order.
func (al *AnalogSignalList) IDs() []int {
	return slices.Sorted(maps.Keys(al.signals))
}

// Signal returns the signal for id.
func (al *AnalogSignalList) Signal(id int) (*AnalogSignal, bool) {
	s, ok := al.signals[id]
	return s, ok
}

// Append adds a signal under a new id. It must share the list's dt and bounds.
func (al *AnalogSignalList) Append(id int, sig *AnalogSignal) error {
	if sig == nil {
		return ErrNilSignal
	}
	if _, ok := al.signals[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	if len(al.signals) == 0 {
		al.dt, al.tStart, al.tStop = sig.dt, sig.tStart, sig.tStop
	} else if math.Abs(sig.dt-al.dt) > boundsTolerance*al.dt || sig.tStart != al.tStart || sig.tStop != al.tStop {
		return fmt.Errorf("%w: signal %v does not match list dt=%v [%v, %v]",
			ErrInvalidBounds, sig, al.dt, al.tStart, al.tStop)
	}
	al.signals[id] = sig.Copy()
	return nil
}

// IDSlice returns a new list with the given identifiers; unknown ones are skipped.
func (al *AnalogSignalList) IDSlice(ids ...int) *AnalogSignalList {
	out := &AnalogSignalList{signals: make(map[int]*AnalogSignal, len(ids)), dt: al.dt, tStart: al.tStart, tStop: al.tStop}
	for _, id := range ids {
		if s, ok := al.signals[id]; ok {
			out.signals[id] = s.Copy()
		}
	}
	return out
}

// TimeSlice slices every signal to [tMin, tMax).
func (al *AnalogSignalList) TimeSlice(tMin, tMax float64) *AnalogSignalList {
	out := &AnalogSignalList{signals: make(map[int]*AnalogSignal, len(al.signals)), dt: al.dt}
	first := true
	for id, s := range al.signals {
		sliced := s.TimeSlice(tMin, tMax)
		if first {
			out.tStart, out.tStop = sliced.tStart, sliced.tStop
			first = false
		}
		out.signals[id] = sliced
	}
	if first {
		out.tStart, out.tStop = max(tMin, al.tStart), max(min(tMax, al.tStop), max(tMin, al.tStart))
	}
	return out
}

// TimeOffset shifts every signal and the list bounds.
func (al *AnalogSignalList) TimeOffset(offset float64) {
	for _, s := range al.signals {
		s.TimeOffset(offset)
	}
	al.tStart += offset
	al.tStop += offset
}

// Mean returns, per sample index, the mean across signals.
func (al *AnalogSignalList) Mean() []float64 {
	return al.acrossSignals(func(column []float64) float64 { return stat.Mean(column, nil) })
}

// Std returns, per sample index, the population standard deviation across signals.
func (al *AnalogSignalList) Std() []float64 {
	return al.acrossSignals(func(column []float64) float64 { return stat.PopStdDev(column, nil) })
}

func (al *AnalogSignalList) acrossSignals(f func([]float64) float64) []float64 {
	ids := al.IDs()
	if len(ids) == 0 {
		return nil
	}
	n := al.signals[ids[0]].Len()
	out := make([]float64, n)
	column := make([]float64, len(ids))
	for i := range out {
		for k, id := range ids {
			column[k] = al.signals[id].values[i]
		}
		out[i] = f(column)
	}
	return out
}

// SelectIDs returns, in ascending order, the identifiers whose signal satisfies pred.
func (al *AnalogSignalList) SelectIDs(pred func(id int, s *AnalogSignal) bool) []int {
	var ids []int
	for _, id := range al.IDs() {
		if pred(id, al.signals[id]) {
			ids = append(ids, id)
		}
	}
	return ids
}

// RawData flattens the list into (id, value) samples, identifier by identifier.
func (al *AnalogSignalList) RawData() []Sample {
	var out []Sample
	for _, id := range al.IDs() {
		for _, v := range al.signals[id].values {
			out = append(out, Sample{ID: id, Value: v})
		}
	}
	return out
}
