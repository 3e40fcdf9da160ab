// Package integration exercises perfz end to end: monitor, timeline,
// collectors and exporters wired together the way an application would.
package integration

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/zoobzio/perfz"
)

// Origin is the fake clock start used by Harness.
var Origin = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// FakeClock is the subset of the clockz fake clock the harness drives.
type FakeClock interface {
	clockz.Clock
	Advance(d time.Duration)
}

// MockCollector wraps a real collector with test utilities.
// Collection is synchronous so assertions need no waiting.
//
//nolint:govet // Field alignment optimized for test helper readability
type MockCollector struct {
	exported []perfz.Snapshot
	*perfz.Collector
	t  *testing.T
	mu sync.Mutex
}

// NewMockCollector creates a synchronous collector for testing.
func NewMockCollector(t *testing.T, name string, bufferSize int) *MockCollector {
	collector := perfz.NewCollector(name, bufferSize)
	collector.SetSyncMode(true)
	return &MockCollector{
		Collector: collector,
		t:         t,
	}
}

// GetAll returns every trace collected so far without losing earlier exports.
func (m *MockCollector) GetAll() []perfz.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.Collector.Export(); len(current) > 0 {
		m.exported = append(m.exported, current...)
	}
	all := make([]perfz.Snapshot, len(m.exported))
	copy(all, m.exported)
	return all
}

// AssertTraceCount verifies the exact number of collected traces.
func (m *MockCollector) AssertTraceCount(expected int) {
	m.t.Helper()
	if got := len(m.GetAll()); got != expected {
		m.t.Errorf("Expected %d traces, got %d", expected, got)
	}
}

// AssertTraceNamed returns the first collected trace with the given name.
func (m *MockCollector) AssertTraceNamed(name string) *perfz.Snapshot {
	m.t.Helper()
	traces := m.GetAll()
	for i := range traces {
		if traces[i].Name == name {
			return &traces[i]
		}
	}
	m.t.Errorf("Trace named '%s' not found", name)
	return nil
}

// Harness bundles a monitor over a fake-clock timeline and a collector.
type Harness struct {
	Clock     FakeClock
	Timeline  *perfz.Timeline
	Monitor   *perfz.Monitor
	Collector *MockCollector
}

// NewHarness builds a harness and registers cleanup on t.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	clock := clockz.NewFakeClockAt(Origin)
	timeline := perfz.NewTimeline(clock)
	monitor := perfz.New(timeline)
	collector := NewMockCollector(t, "integration", 1000)
	monitor.OnTraceComplete(collector.Handler())

	t.Cleanup(func() {
		monitor.Close()
		collector.Close()
	})

	return &Harness{
		Clock:     clock,
		Timeline:  timeline,
		Monitor:   monitor,
		Collector: collector,
	}
}

// Timed runs a trace around a simulated piece of work lasting d.
func (h *Harness) Timed(name string, d time.Duration, work func(*perfz.Trace)) *perfz.Trace {
	tr := h.Monitor.NewTrace(name)
	if err := tr.Start(); err != nil {
		panic(err)
	}
	if work != nil {
		work(tr)
	}
	h.Clock.Advance(d)
	if err := tr.Stop(); err != nil {
		panic(err)
	}
	return tr
}

// FormatTraces renders traces sorted by start time for debugging output.
func FormatTraces(traces []perfz.Snapshot) string {
	sorted := make([]perfz.Snapshot, len(traces))
	copy(sorted, traces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime().Before(sorted[j].StartTime())
	})

	var sb strings.Builder
	for _, s := range sorted {
		fmt.Fprintf(&sb, "%s (%.3fms) counters=%v attributes=%v\n",
			s.Name, float64(s.Duration())/float64(time.Millisecond), s.Counters, s.Attributes)
	}
	return sb.String()
}
