package perfz

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// Timeline is an in-process Performance driven by a clock.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for readability
type Timeline struct {
	clock   clockz.Clock
	origin  time.Time
	entries map[string][]Entry
	url     string
	mu      sync.RWMutex
}

// NewTimeline creates a timeline whose time origin is the clock's current time.
func NewTimeline(clock clockz.Clock) *Timeline {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Timeline{
		clock:   clock,
		origin:  clock.Now(),
		entries: make(map[string][]Entry),
	}
}

// Mark records an instantaneous entry at the current clock time.
func (tl *Timeline) Mark(name string) {
	now := sinceMillis(tl.clock.Now().Sub(tl.origin))

	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.entries[name] = append(tl.entries[name], Entry{
		Name:      name,
		EntryType: EntryMark,
		StartTime: now,
	})
}

// Measure records an interval between the latest entries of two marks.
// Nothing is recorded when either mark is unknown.
func (tl *Timeline) Measure(name, startMark, endMark string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	start, ok := tl.latestLocked(startMark)
	if !ok {
		return
	}
	end, ok := tl.latestLocked(endMark)
	if !ok {
		return
	}

	tl.entries[name] = append(tl.entries[name], Entry{
		Name:      name,
		EntryType: EntryMeasure,
		StartTime: start.StartTime,
		Duration:  end.StartTime - start.StartTime,
	})
}

func (tl *Timeline) latestLocked(name string) (Entry, bool) {
	list := tl.entries[name]
	if len(list) == 0 {
		return Entry{}, false
	}
	return list[len(list)-1], true
}

// EntriesByName returns a copy of the entries recorded under name.
func (tl *Timeline) EntriesByName(name string) []Entry {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	list := tl.entries[name]
	if len(list) == 0 {
		return nil
	}
	out := make([]Entry, len(list))
	copy(out, list)
	return out
}

// TimeOrigin returns the origin in epoch milliseconds.
func (tl *Timeline) TimeOrigin() float64 {
	return float64(tl.origin.UnixNano()) / float64(time.Millisecond)
}

// URL returns the current route.
func (tl *Timeline) URL() (string, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.url, tl.url != ""
}

// SetURL sets the current route. An empty url clears it.
func (tl *Timeline) SetURL(url string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.url = url
}

// ClearMarks removes mark entries under name, or all marks when name is empty.
func (tl *Timeline) ClearMarks(name string) {
	tl.clear(name, EntryMark)
}

// ClearMeasures removes measure entries under name, or all measures when name is empty.
func (tl *Timeline) ClearMeasures(name string) {
	tl.clear(name, EntryMeasure)
}

func (tl *Timeline) clear(name, entryType string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	for key, list := range tl.entries {
		if name != "" && key != name {
			continue
		}
		kept := list[:0]
		for _, e := range list {
			if e.EntryType != entryType {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(tl.entries, key)
		} else {
			tl.entries[key] = kept
		}
	}
}

// Len returns the number of recorded entries.
func (tl *Timeline) Len() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	n := 0
	for _, list := range tl.entries {
		n += len(list)
	}
	return n
}

// Reset drops every entry and the route. The time origin is kept.
func (tl *Timeline) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.entries = make(map[string][]Entry)
	tl.url = ""
}

func sinceMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
