package perfz

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// State is the lifecycle stage of a Trace.
type State uint8

// Trace states. Transitions only move forward.
const (
	StateUninitialized State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Trace is one named, timed measurement plus its counters and attributes.
// Traces are NOT thread-safe - do not modify from multiple goroutines.
//
//nolint:govet // Field order groups collaborators before bookkeeping
type Trace struct {
	perf        Performance
	reporter    Reporter
	attributes  map[string]string
	counters    map[string]int64
	name        string
	startMark   string
	stopMark    string
	measureName string
	startTimeUs int64
	durationUs  int64
	state       State
	auto        bool
	hasStart    bool
	hasDuration bool
}

// TraceOption configures a Trace at construction.
type TraceOption func(*traceConfig)

type traceConfig struct {
	measureName string
	auto        bool
}

// WithMeasure adopts a measure that was already created on the Performance.
// Timing is computed immediately; the trace is never started or stopped.
func WithMeasure(measureName string) TraceOption {
	return func(c *traceConfig) {
		c.measureName = measureName
	}
}

// withAuto marks a trace as synthesized from platform timing data.
func withAuto() TraceOption {
	return func(c *traceConfig) {
		c.auto = true
	}
}

func newTrace(perf Performance, reporter Reporter, id func() string, name string, opts ...TraceOption) *Trace {
	var cfg traceConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &Trace{
		perf:       perf,
		reporter:   reporter,
		name:       name,
		auto:       cfg.auto,
		attributes: make(map[string]string),
		counters:   make(map[string]int64),
	}
	if t.auto {
		return t
	}

	rid := id()
	t.startMark = correlationName(startMarkPrefix, rid, name)
	t.stopMark = correlationName(stopMarkPrefix, rid, name)
	t.measureName = correlationName(measurePrefix, rid, name)

	if cfg.measureName != "" {
		t.measureName = cfg.measureName
		t.calculateFromMeasure()
	}
	return t
}

func correlationName(prefix, id, name string) string {
	return prefix + "-" + id + "-" + name
}

// Name returns the trace name.
func (t *Trace) Name() string {
	return t.name
}

// IsAuto reports whether the trace was synthesized from platform timing data.
func (t *Trace) IsAuto() bool {
	return t.auto
}

// State returns the current lifecycle stage.
func (t *Trace) State() State {
	return t.state
}

// StartTimeUs returns the absolute start time in epoch microseconds.
// ok is false until timing has been computed or recorded.
func (t *Trace) StartTimeUs() (us int64, ok bool) {
	return t.startTimeUs, t.hasStart
}

// DurationUs returns the duration in microseconds.
// ok is false until timing has been computed or recorded.
func (t *Trace) DurationUs() (us int64, ok bool) {
	return t.durationUs, t.hasDuration
}

// Start marks the beginning of the trace.
func (t *Trace) Start() error {
	if t.state != StateUninitialized {
		return &TraceError{Name: t.name, Err: ErrTraceAlreadyStarted}
	}
	t.perf.Mark(t.startMark)
	t.state = StateRunning
	return nil
}

// Stop ends the trace, computes its timing and reports it.
func (t *Trace) Stop() error {
	if t.state != StateRunning {
		return &TraceError{Name: t.name, Err: ErrTraceAlreadyStopped}
	}
	t.state = StateTerminated
	t.perf.Mark(t.stopMark)
	t.perf.Measure(t.measureName, t.startMark, t.stopMark)
	t.calculateFromMeasure()
	t.report()
	return nil
}

// RecordOptions carries optional data for Record.
type RecordOptions struct {
	// Attributes replaces the trace attributes when non-nil.
	Attributes map[string]string
	// Metrics values must be numeric after coercion; others are dropped.
	Metrics map[string]any
}

// Record assigns timing directly and reports the trace.
// startTime and duration are milliseconds. Record neither checks nor
// changes the trace state.
func (t *Trace) Record(startTime, duration float64, opts *RecordOptions) {
	t.setStartTimeUs(toMicros(startTime))
	t.setDurationUs(toMicros(duration))

	if opts != nil {
		if opts.Attributes != nil {
			t.attributes = make(map[string]string, len(opts.Attributes))
			for k, v := range opts.Attributes {
				t.attributes[k] = v
			}
		}
		for name, raw := range opts.Metrics {
			if v, ok := toNumber(raw); ok {
				t.PutMetric(name, v)
			}
		}
	}

	t.report()
}

// IncrementMetric adds delta to the named counter, starting from zero.
// Fractional deltas are truncated.
func (t *Trace) IncrementMetric(name string, delta float64) {
	t.counters[name] += int64(math.Trunc(delta))
}

// Increment adds one to the named counter.
func (t *Trace) Increment(name string) {
	t.IncrementMetric(name, 1)
}

// PutMetric sets the named counter. Fractional values are truncated.
func (t *Trace) PutMetric(name string, value float64) {
	t.counters[name] = int64(math.Trunc(value))
}

// GetMetric returns the named counter, or zero when absent.
func (t *Trace) GetMetric(name string) int64 {
	return t.counters[name]
}

// HasMetric reports whether the named counter has been set.
func (t *Trace) HasMetric(name string) bool {
	_, ok := t.counters[name]
	return ok
}

// Metrics returns a copy of all counters.
func (t *Trace) Metrics() map[string]int64 {
	out := make(map[string]int64, len(t.counters))
	for k, v := range t.counters {
		out[k] = v
	}
	return out
}

// PutAttribute sets the named attribute.
func (t *Trace) PutAttribute(name, value string) {
	t.attributes[name] = value
}

// GetAttribute returns the named attribute.
func (t *Trace) GetAttribute(name string) (string, bool) {
	v, ok := t.attributes[name]
	return v, ok
}

// RemoveAttribute deletes the named attribute if present.
func (t *Trace) RemoveAttribute(name string) {
	delete(t.attributes, name)
}

// Attributes returns a copy of all attributes.
func (t *Trace) Attributes() map[string]string {
	out := make(map[string]string, len(t.attributes))
	for k, v := range t.attributes {
		out[k] = v
	}
	return out
}

// Snapshot returns a deep copy of the trace for handlers and exporters.
func (t *Trace) Snapshot() Snapshot {
	s := Snapshot{
		Name:       t.name,
		Auto:       t.auto,
		Attributes: t.Attributes(),
		Counters:   t.Metrics(),
	}
	if t.hasStart {
		us := t.startTimeUs
		s.StartTimeUs = &us
	}
	if t.hasDuration {
		us := t.durationUs
		s.DurationUs = &us
	}
	return s
}

// calculateFromMeasure reads timing from the first entry of the measure.
// No entry leaves timing unset.
func (t *Trace) calculateFromMeasure() {
	entries := t.perf.EntriesByName(t.measureName)
	if len(entries) == 0 {
		return
	}
	entry := entries[0]
	t.setDurationUs(toMicros(entry.Duration))
	t.setStartTimeUs(toMicros(entry.StartTime + t.perf.TimeOrigin()))
}

func (t *Trace) setStartTimeUs(us int64) {
	t.startTimeUs = us
	t.hasStart = true
}

func (t *Trace) setDurationUs(us int64) {
	t.durationUs = us
	t.hasDuration = true
}

func (t *Trace) report() {
	if t.reporter != nil {
		t.reporter.Report(t)
	}
}

// Snapshot is an immutable view of a reported trace.
//
//nolint:govet // Field alignment optimized for JSON serialization order
type Snapshot struct {
	Attributes  map[string]string `json:"attributes,omitempty"`
	Counters    map[string]int64  `json:"counters,omitempty"`
	StartTimeUs *int64            `json:"start_time_us,omitempty"`
	DurationUs  *int64            `json:"duration_us,omitempty"`
	Name        string            `json:"name"`
	Auto        bool              `json:"auto"`
}

// StartTime returns the start time, or the zero time when unset.
func (s Snapshot) StartTime() time.Time {
	if s.StartTimeUs == nil {
		return time.Time{}
	}
	return time.UnixMicro(*s.StartTimeUs)
}

// Duration returns the duration, or zero when unset.
func (s Snapshot) Duration() time.Duration {
	if s.DurationUs == nil {
		return 0
	}
	return time.Duration(*s.DurationUs) * time.Microsecond
}

// clone deep-copies the snapshot.
func (s Snapshot) clone() Snapshot {
	c := s
	if s.Attributes != nil {
		c.Attributes = make(map[string]string, len(s.Attributes))
		for k, v := range s.Attributes {
			c.Attributes[k] = v
		}
	}
	if s.Counters != nil {
		c.Counters = make(map[string]int64, len(s.Counters))
		for k, v := range s.Counters {
			c.Counters[k] = v
		}
	}
	if s.StartTimeUs != nil {
		us := *s.StartTimeUs
		c.StartTimeUs = &us
	}
	if s.DurationUs != nil {
		us := *s.DurationUs
		c.DurationUs = &us
	}
	return c
}

// toMicros converts fractional milliseconds to whole microseconds.
func toMicros(ms float64) int64 {
	return int64(math.Floor(ms * 1000))
}

// toNumber coerces a metric value to a finite number.
func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
