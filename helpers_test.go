package perfz

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

// testOrigin is the fake clock start; 1704067200000 ms since epoch.
var testOrigin = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const testOriginUs int64 = 1704067200000000

type fakeClock interface {
	clockz.Clock
	Advance(d time.Duration)
}

// recordingReporter keeps every reported trace.
type recordingReporter struct {
	traces []*Trace
	mu     sync.Mutex
}

func (r *recordingReporter) Report(t *Trace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces = append(r.traces, t)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.traces)
}

// sequentialIDs returns an id source yielding 0, 1, 2...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		id := strconv.Itoa(n)
		n++
		return id
	}
}

type traceFixture struct {
	clock    fakeClock
	timeline *Timeline
	reporter *recordingReporter
	ids      func() string
}

func newTraceFixture(t *testing.T) *traceFixture {
	t.Helper()
	clock := clockz.NewFakeClockAt(testOrigin)
	return &traceFixture{
		clock:    clock,
		timeline: NewTimeline(clock),
		reporter: &recordingReporter{},
		ids:      sequentialIDs(),
	}
}

func (f *traceFixture) trace(name string, opts ...TraceOption) *Trace {
	return newTrace(f.timeline, f.reporter, f.ids, name, opts...)
}

// newTestMonitor returns a monitor over a fake-clock timeline with a
// synchronous collector attached.
func newTestMonitor(t *testing.T) (*Monitor, *Timeline, fakeClock, *Collector) {
	t.Helper()
	clock := clockz.NewFakeClockAt(testOrigin)
	timeline := NewTimeline(clock)
	monitor := New(timeline)
	collector := NewCollector("test", 100)
	collector.SetSyncMode(true)
	monitor.OnTraceComplete(collector.Handler())
	t.Cleanup(func() {
		monitor.Close()
		collector.Close()
	})
	return monitor, timeline, clock, collector
}
