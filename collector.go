package perfz

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector buffers reported traces for batch export.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Collector struct {
	traces       []Snapshot
	tracesCh     chan Snapshot
	stopCh       chan struct{}
	done         chan struct{}
	droppedCount atomic.Int64
	name         string
	mu           sync.Mutex
	closeOnce    sync.Once
	closed       atomic.Bool
	syncMode     bool // Bypass channel for synchronous collection.
}

// NewCollector creates a new collector with the specified name and buffer size.
func NewCollector(name string, bufferSize int) *Collector {
	c := &Collector{
		name:     name,
		traces:   make([]Snapshot, 0, 8),
		tracesCh: make(chan Snapshot, bufferSize),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.start()
	return c
}

// Name returns the collector name.
func (c *Collector) Name() string {
	return c.name
}

// start runs the collector's main loop, receiving traces from the channel.
func (c *Collector) start() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			// Drain remaining traces before shutdown.
			for {
				select {
				case s := <-c.tracesCh:
					c.buffer(s)
				default:
					return
				}
			}
		case s := <-c.tracesCh:
			c.buffer(s)
		}
	}
}

// Close shuts down the collector, draining queued traces.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopCh)
		select {
		case <-c.done:
		case <-time.After(100 * time.Millisecond):
		}
	})
}

// Handler returns a TraceHandler feeding this collector.
func (c *Collector) Handler() TraceHandler {
	return func(s Snapshot) {
		c.Collect(&s)
	}
}

// Collect attempts to buffer a trace with backpressure protection.
// If the internal channel is full, the trace is dropped and the drop counter is incremented.
// In sync mode, traces are buffered directly for deterministic testing.
func (c *Collector) Collect(s *Snapshot) {
	if s == nil {
		c.droppedCount.Add(1)
		return
	}
	if c.closed.Load() {
		c.droppedCount.Add(1)
		return
	}

	// Copy so later changes by the caller are not observed.
	cp := s.clone()

	if c.syncMode {
		c.buffer(cp)
		return
	}

	select {
	case c.tracesCh <- cp:
	default:
		c.droppedCount.Add(1)
	}
}

// buffer appends a trace to the internal buffer.
func (c *Collector) buffer(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.traces) >= cap(c.traces) {
		currentCap := cap(c.traces)
		var newCap int
		if currentCap < 1024 {
			newCap = currentCap * 2
		} else {
			newCap = currentCap + currentCap/2
		}
		if newCap < 32 {
			newCap = 32
		}
		grown := make([]Snapshot, len(c.traces), newCap)
		copy(grown, c.traces)
		c.traces = grown
	}
	c.traces = append(c.traces, s)
}

// Export returns a copy of all buffered traces and clears the internal buffer.
// The returned slice is safe to modify without affecting the collector.
func (c *Collector) Export() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.traces) == 0 {
		return nil
	}

	result := make([]Snapshot, len(c.traces))
	for i := range c.traces {
		result[i] = c.traces[i].clone()
	}

	// Shrink only when the buffer is very oversized.
	if cap(c.traces) > 256 && len(c.traces) < cap(c.traces)/8 {
		newCap := cap(c.traces) / 4
		if newCap < 32 {
			newCap = 32
		}
		c.traces = make([]Snapshot, 0, newCap)
	} else {
		c.traces = c.traces[:0]
	}

	return result
}

// Count returns the current number of buffered traces.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.traces)
}

// DroppedCount returns the total number of traces dropped.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode enables synchronous collection for testing.
func (c *Collector) SetSyncMode(sync bool) {
	c.syncMode = sync
}

// Reset clears all buffered traces and resets the drop counter.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.traces = c.traces[:0]
	c.droppedCount.Store(0)
}
