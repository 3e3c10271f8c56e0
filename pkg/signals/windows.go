package signals

import (
	"fmt"
	"slices"
)

// WindowType represents different ways of cutting a time range into windows
type WindowType string

const (
	SlidingWindow  WindowType = "sliding"
	TumblingWindow WindowType = "tumbling"
	SessionWindow  WindowType = "session"
)

// Window is a half-open time range [Start, End) in ms
type Window struct {
	Type  WindowType `json:"type"`
	Size  float64    `json:"size,omitempty"`
	Slide float64    `json:"slide,omitempty"` // For sliding windows
	Gap   float64    `json:"gap,omitempty"`   // For session windows
	Start float64    `json:"start"`
	End   float64    `json:"end"`
	Count int        `json:"count,omitempty"` // Events that opened the window (session windows)
}

// Duration is End - Start.
func (w Window) Duration() float64 { return w.End - w.Start }

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t float64) bool { return t >= w.Start && t < w.End }

// WindowedValue is a value computed over one window
type WindowedValue struct {
	Window Window  `json:"window"`
	Value  float64 `json:"value"`
	Count  int     `json:"count"`
}

// CreateSlidingWindows creates windows of size starting every slide ms
func CreateSlidingWindows(start, end, size, slide float64) []Window {
	if size <= 0 || slide <= 0 {
		return nil
	}
	var windows []Window

	for i := 0; ; i++ {
		current := start + float64(i)*slide
		if current >= end {
			break
		}
		windowEnd := min(current+size, end)

		windows = append(windows, Window{
			Type:  SlidingWindow,
			Size:  size,
			Slide: slide,
			Start: current,
			End:   windowEnd,
		})
	}

	return windows
}

// CreateTumblingWindows creates non-overlapping windows covering [start, end)
func CreateTumblingWindows(start, end, size float64) []Window {
	if size <= 0 {
		return nil
	}
	var windows []Window

	for i := 0; ; i++ {
		current := start + float64(i)*size
		if current >= end {
			break
		}
		windows = append(windows, Window{
			Type:  TumblingWindow,
			Size:  size,
			Start: current,
			End:   min(current+size, end),
		})
	}

	return windows
}

// CreateSessionWindows groups event times into sessions separated by gaps
// larger than gap. Each window ends at its last event.
func CreateSessionWindows(events []float64, gap float64) []Window {
	if len(events) == 0 {
		return []Window{}
	}

	sorted := slices.Clone(events)
	slices.Sort(sorted)

	var windows []Window
	sessionStart := sorted[0]
	lastEvent := sorted[0]
	count := 1

	for _, current := range sorted[1:] {
		// Gap larger than allowed closes the current session
		if current-lastEvent > gap {
			windows = append(windows, Window{
				Type:  SessionWindow,
				Gap:   gap,
				Start: sessionStart,
				End:   lastEvent,
				Count: count,
			})
			sessionStart = current
			count = 0
		}
		lastEvent = current
		count++
	}

	windows = append(windows, Window{
		Type:  SessionWindow,
		Gap:   gap,
		Start: sessionStart,
		End:   lastEvent,
		Count: count,
	})

	return windows
}

// WindowSpec describes how to window a recording
type WindowSpec struct {
	Type  WindowType `json:"type" hcl:"type"`
	Size  float64    `json:"size,omitempty" hcl:"size,optional"`
	Slide float64    `json:"slide,omitempty" hcl:"slide,optional"`
	Gap   float64    `json:"gap,omitempty" hcl:"gap,optional"`
}

// Validate checks that the spec has the fields its type needs
func (spec WindowSpec) Validate() error {
	switch spec.Type {
	case TumblingWindow:
		if spec.Size <= 0 {
			return fmt.Errorf("invalid window size: %v", spec.Size)
		}
	case SlidingWindow:
		if spec.Size <= 0 {
			return fmt.Errorf("invalid window size: %v", spec.Size)
		}
		if spec.Slide <= 0 {
			return fmt.Errorf("invalid slide: %v", spec.Slide)
		}
	case SessionWindow:
		if spec.Gap <= 0 {
			return fmt.Errorf("invalid session gap: %v", spec.Gap)
		}
	default:
		return fmt.Errorf("unknown window type %q", spec.Type)
	}
	return nil
}

// Windows cuts [start, end) according to the spec. Session windows need event
// times and are built from events instead.
func (spec WindowSpec) Windows(start, end float64, events []float64) ([]Window, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Type {
	case SlidingWindow:
		return CreateSlidingWindows(start, end, spec.Size, spec.Slide), nil
	case SessionWindow:
		return CreateSessionWindows(events, spec.Gap), nil
	default:
		return CreateTumblingWindows(start, end, spec.Size), nil
	}
}
