package perfz

import (
	"errors"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// correlationIDRange bounds the random part of mark and measure names.
const correlationIDRange = 1_000_000

// TraceHandler is called when a trace is reported.
type TraceHandler func(snapshot Snapshot)

type handlerEntry struct {
	handler TraceHandler
	id      uint64
	async   bool
}

// Monitor creates traces against a Performance and fans reported traces
// out to handlers. It implements Reporter.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type Monitor struct {
	handlers      []handlerEntry
	panicHook     func(handlerID uint64, r interface{})
	workers       *workerPool
	ids           *IDPool
	perf          Performance
	logger        *zap.Logger
	handlersLock  sync.RWMutex
	idPoolOnce    sync.Once
	nextID        atomic.Uint64
	droppedTraces atomic.Uint64
	reported      atomic.Uint64
}

// New creates a monitor measuring against perf.
func New(perf Performance) *Monitor {
	return &Monitor{
		handlers: make([]handlerEntry, 0),
		perf:     perf,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger used for monitor diagnostics.
func (m *Monitor) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m.logger = logger
}

// Configure applies cfg to the monitor.
func (m *Monitor) Configure(cfg Config) error {
	if cfg.Workers > 0 {
		return m.EnableWorkerPool(cfg.Workers, cfg.QueueSize)
	}
	return nil
}

// Performance returns the timing facility the monitor measures against.
func (m *Monitor) Performance() Performance {
	return m.perf
}

// ensureIDPool initializes the correlation ID pool if not already created.
func (m *Monitor) ensureIDPool() {
	m.idPoolOnce.Do(func() {
		m.ids = NewIDPool(runtime.NumCPU()*16, correlationIDRange)
	})
}

func (m *Monitor) correlationID() string {
	m.ensureIDPool()
	return strconv.Itoa(m.ids.Get())
}

// NewTrace creates a user trace bound to this monitor.
func (m *Monitor) NewTrace(name Key, opts ...TraceOption) *Trace {
	return newTrace(m.perf, m, m.correlationID, name, opts...)
}

// OnTraceComplete registers a synchronous handler called when traces are reported.
func (m *Monitor) OnTraceComplete(handler TraceHandler) uint64 {
	return m.registerHandler(handler, false)
}

// OnTraceCompleteAsync registers an asynchronous handler called when traces are reported.
func (m *Monitor) OnTraceCompleteAsync(handler TraceHandler) uint64 {
	return m.registerHandler(handler, true)
}

func (m *Monitor) registerHandler(handler TraceHandler, async bool) uint64 {
	if handler == nil {
		return 0
	}

	id := m.nextID.Add(1)

	m.handlersLock.Lock()
	defer m.handlersLock.Unlock()

	m.handlers = append(m.handlers, handlerEntry{
		id:      id,
		handler: handler,
		async:   async,
	})

	return id
}

// RemoveHandler removes a handler by ID.
func (m *Monitor) RemoveHandler(id uint64) {
	m.handlersLock.Lock()
	defer m.handlersLock.Unlock()

	for i, h := range m.handlers {
		if h.id == id {
			copy(m.handlers[i:], m.handlers[i+1:])
			m.handlers = m.handlers[:len(m.handlers)-1]
			return
		}
	}
}

// HasHandlers reports whether any handler is registered.
func (m *Monitor) HasHandlers() bool {
	m.handlersLock.RLock()
	defer m.handlersLock.RUnlock()
	return len(m.handlers) > 0
}

// SetPanicHook sets a function to be called when a handler panics.
func (m *Monitor) SetPanicHook(hook func(handlerID uint64, r interface{})) {
	m.panicHook = hook
}

// Report snapshots the trace and hands it to every handler.
func (m *Monitor) Report(trace *Trace) {
	if trace == nil {
		return
	}
	m.reported.Add(1)

	snapshot := trace.Snapshot()
	m.logger.Debug("trace reported",
		zap.String("trace", snapshot.Name),
		zap.Bool("auto", snapshot.Auto),
		zap.Duration("duration", snapshot.Duration()),
	)
	m.executeHandlers(snapshot)
}

// Reported returns the number of traces reported so far.
func (m *Monitor) Reported() uint64 {
	return m.reported.Load()
}

// executeHandlers calls all registered handlers with the snapshot.
// Each handler receives its own copy.
func (m *Monitor) executeHandlers(snapshot Snapshot) {
	m.handlersLock.RLock()
	if len(m.handlers) == 0 {
		m.handlersLock.RUnlock()
		return
	}

	handlers := make([]handlerEntry, len(m.handlers))
	copy(handlers, m.handlers)
	m.handlersLock.RUnlock()

	for _, h := range handlers {
		s := snapshot.clone()
		if h.async {
			entry := h
			if m.workers != nil {
				m.workers.submit(func() {
					m.safeCall(entry, s)
				})
			} else {
				go m.safeCall(entry, s)
			}
		} else {
			m.safeCall(h, s)
		}
	}
}

func (m *Monitor) safeCall(entry handlerEntry, snapshot Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("trace handler panicked",
				zap.Uint64("handler", entry.id),
				zap.String("trace", snapshot.Name),
				zap.Any("panic", r),
			)
			if m.panicHook != nil {
				m.panicHook(entry.id, r)
			}
		}
	}()
	entry.handler(snapshot)
}

// EnableWorkerPool creates a bounded worker pool for async handlers.
func (m *Monitor) EnableWorkerPool(workers, queueSize int) error {
	if m.workers != nil {
		return errors.New("worker pool already enabled")
	}
	if workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if queueSize <= 0 {
		return errors.New("queueSize must be > 0")
	}

	m.workers = &workerPool{
		tasks:   make(chan func(), queueSize),
		stop:    make(chan struct{}),
		dropped: &m.droppedTraces,
		logger:  m.logger,
	}

	m.workers.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.workers.run()
	}

	return nil
}

// DroppedTraces returns the number of async deliveries dropped due to a full worker queue.
func (m *Monitor) DroppedTraces() uint64 {
	return m.droppedTraces.Load()
}

// Close shuts down the monitor and waits for in-flight async handlers.
func (m *Monitor) Close() {
	m.handlersLock.Lock()
	m.handlers = nil
	m.handlersLock.Unlock()

	if m.workers != nil {
		m.workers.shutdown()
		m.workers = nil
	}

	if m.ids != nil {
		m.ids.Close()
	}
}

// workerPool runs async handlers on a fixed number of goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type workerPool struct {
	tasks   chan func()
	stop    chan struct{}
	dropped *atomic.Uint64
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func (w *workerPool) run() {
	defer w.wg.Done()
	for {
		select {
		case task := <-w.tasks:
			task()
		case <-w.stop:
			return
		}
	}
}

func (w *workerPool) submit(task func()) {
	select {
	case w.tasks <- task:
	default:
		w.dropped.Add(1)
		w.logger.Warn("trace handler queue full, dropping delivery")
	}
}

func (w *workerPool) shutdown() {
	close(w.stop)
	w.wg.Wait()
}
