// Package spikefile reads and writes spike and analog lists in a plain text
// format: '#' header lines of the form "# key = value" followed by one
// "id<TAB>value" line per event or sample.
package spikefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// Header keys.
const (
	KeyTStart = "t_start"
	KeyTStop  = "t_stop"
	KeyIDs    = "ids"
	KeyDT     = "dt"
)

var (
	ErrMalformedLine   = errors.New("malformed line")
	ErrMalformedHeader = errors.New("malformed header")
	ErrMissingDT       = errors.New("analog file has no dt header")
)

// LoadOptions restrict what is loaded. IDs takes precedence over FirstN.
// TStart and TStop, when set, clamp the loaded data.
type LoadOptions struct {
	IDs    []int
	FirstN int
	TStart *float64
	TStop  *float64
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeHeader(w *bufio.Writer, key, value string) {
	fmt.Fprintf(w, "# %s = %s\n", key, value)
}

func formatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// WriteSpikes writes sl in time order.
func WriteSpikes(w io.Writer, sl *signals.SpikeList) error {
	if sl == nil {
		return signals.ErrNilTrain
	}
	bw := bufio.NewWriter(w)
	writeHeader(bw, KeyTStart, formatFloat(sl.TStart()))
	writeHeader(bw, KeyTStop, formatFloat(sl.TStop()))
	writeHeader(bw, KeyIDs, formatIDs(sl.IDs()))
	for _, s := range sl.RawData() {
		fmt.Fprintf(bw, "%d\t%s\n", s.ID, formatFloat(s.Time))
	}
	return bw.Flush()
}

// WriteAnalog writes al identifier by identifier.
func WriteAnalog(w io.Writer, al *signals.AnalogSignalList) error {
	if al == nil {
		return signals.ErrNilSignal
	}
	bw := bufio.NewWriter(w)
	writeHeader(bw, KeyDT, formatFloat(al.DT()))
	writeHeader(bw, KeyTStart, formatFloat(al.TStart()))
	writeHeader(bw, KeyTStop, formatFloat(al.TStop()))
	writeHeader(bw, KeyIDs, formatIDs(al.IDs()))
	for _, s := range al.RawData() {
		fmt.Fprintf(bw, "%d\t%s\n", s.ID, formatFloat(s.Value))
	}
	return bw.Flush()
}

type record struct {
	id    int
	value float64
}

type parsed struct {
	header  map[string]string
	records []record
}

func parse(r io.Reader) (*parsed, error) {
	p := &parsed{header: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "#"); ok {
			// Free-form comments without '=' are ignored
			if key, value, found := strings.Cut(rest, "="); found {
				p.header[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w %d: %q", ErrMalformedLine, lineNo, line)
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w %d: id: %v", ErrMalformedLine, lineNo, err)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w %d: value: %v", ErrMalformedLine, lineNo, err)
		}
		p.records = append(p.records, record{id: id, value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	return p, nil
}

func (p *parsed) float(key string) (float64, bool, error) {
	raw, ok := p.header[key]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s = %q", ErrMalformedHeader, key, raw)
	}
	return v, true, nil
}

// ids returns the identifiers declared in the header, or those found in the
// data, in ascending order.
func (p *parsed) ids() ([]int, error) {
	if raw, ok := p.header[KeyIDs]; ok {
		var ids []int
		for part := range strings.SplitSeq(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("%w: ids = %q", ErrMalformedHeader, raw)
			}
			ids = append(ids, id)
		}
		slices.Sort(ids)
		return slices.Compact(ids), nil
	}
	var ids []int
	for _, rec := range p.records {
		ids = append(ids, rec.id)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (p *parsed) selectIDs(opts LoadOptions) ([]int, error) {
	if opts.IDs != nil {
		return slices.Clone(opts.IDs), nil
	}
	ids, err := p.ids()
	if err != nil {
		return nil, err
	}
	if opts.FirstN > 0 && opts.FirstN < len(ids) {
		ids = ids[:opts.FirstN]
	}
	return ids, nil
}

// bound reads a header bound and narrows it with override using pick.
func (p *parsed) bound(key string, override *float64, pick func(a, b float64) float64) (float64, bool, error) {
	v, ok, err := p.float(key)
	if err != nil || override == nil {
		return v, ok, err
	}
	if !ok {
		return *override, true, nil
	}
	return pick(v, *override), true, nil
}

func (p *parsed) bounds(tStart, tStop *float64) ([]signals.Option, error) {
	var out []signals.Option
	start, ok, err := p.bound(KeyTStart, tStart, math.Max)
	if err != nil {
		return nil, err
	}
	if ok {
		out = append(out, signals.WithTStart(start))
	}
	stop, ok, err := p.bound(KeyTStop, tStop, math.Min)
	if err != nil {
		return nil, err
	}
	if ok {
		out = append(out, signals.WithTStop(stop))
	}
	return out, nil
}

// ReadSpikes loads a spike list. Identifiers declared in the header are kept
// even when they never fire.
func ReadSpikes(r io.Reader, opts LoadOptions) (*signals.SpikeList, error) {
	p, err := parse(r)
	if err != nil {
		return nil, err
	}
	ids, err := p.selectIDs(opts)
	if err != nil {
		return nil, err
	}
	bounds, err := p.bounds(opts.TStart, opts.TStop)
	if err != nil {
		return nil, err
	}
	spikes := make([]signals.Spike, len(p.records))
	for i, rec := range p.records {
		spikes[i] = signals.Spike{ID: rec.id, Time: rec.value}
	}
	return signals.NewSpikeList(spikes, ids, bounds...)
}

// ReadAnalog loads an analog signal list. A dt header is required. Clamping
// with TStart/TStop slices the signals after loading.
func ReadAnalog(r io.Reader, opts LoadOptions) (*signals.AnalogSignalList, error) {
	p, err := parse(r)
	if err != nil {
		return nil, err
	}
	dt, ok, err := p.float(KeyDT)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMissingDT
	}
	ids, err := p.selectIDs(opts)
	if err != nil {
		return nil, err
	}
	bounds, err := p.bounds(nil, nil)
	if err != nil {
		return nil, err
	}

	samples := make([]signals.Sample, len(p.records))
	for i, rec := range p.records {
		samples[i] = signals.Sample{ID: rec.id, Value: rec.value}
	}
	al, err := signals.NewAnalogSignalList(samples, ids, dt, bounds...)
	if err != nil {
		return nil, err
	}
	if opts.TStart != nil || opts.TStop != nil {
		tMin, tMax := al.TStart(), al.TStop()
		if opts.TStart != nil {
			tMin = *opts.TStart
		}
		if opts.TStop != nil {
			tMax = *opts.TStop
		}
		al = al.TimeSlice(tMin, tMax)
	}
	return al, nil
}

// SaveSpikes writes sl to path.
func SaveSpikes(path string, sl *signals.SpikeList) error {
	return save(path, func(w io.Writer) error { return WriteSpikes(w, sl) })
}

// SaveAnalog writes al to path.
func SaveAnalog(path string, al *signals.AnalogSignalList) error {
	return save(path, func(w io.Writer) error { return WriteAnalog(w, al) })
}

// LoadSpikes reads a spike list from path.
func LoadSpikes(path string, opts LoadOptions) (*signals.SpikeList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadSpikes(f, opts)
}

// LoadAnalog reads an analog signal list from path.
func LoadAnalog(path string, opts LoadOptions) (*signals.AnalogSignalList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadAnalog(f, opts)
}

func save(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
