// Package perfz provides a small performance-trace library.
//
// perfz measures named traces on top of a host timing facility (marks,
// measures and a time origin), attaches integer counters and string
// attributes, and forwards every completed trace to a reporter.
//
// Core Components:
//   - Trace: One timed measurement with its counters and attributes.
//   - Performance: The host timing facility traces are measured against.
//   - Timeline: An in-process Performance driven by a clockz.Clock.
//   - Monitor: Creates traces and fans completed ones out to handlers.
//   - Collector: Buffers completed traces for export.
//
// Basic Usage:
//
//	timeline := perfz.NewTimeline(clockz.RealClock)
//	monitor := perfz.New(timeline)
//	defer monitor.Close()
//
//	monitor.OnTraceComplete(func(s perfz.Snapshot) {
//		fmt.Println(s.Name, s.Duration())
//	})
//
//	trace := monitor.NewTrace("checkout")
//	_ = trace.Start()
//	trace.Increment("items")
//	trace.PutAttribute("region", "eu")
//	_ = trace.Stop()
//
// Synthesized Traces:
//
// Monitor.RecordPageLoad builds a trace from navigation and paint timing
// records, and Monitor.RecordUserTiming adopts a measure created directly
// on the Performance. Neither goes through Start/Stop.
//
// Thread Safety:
//
// Monitor, Timeline and Collector are safe for concurrent use. A Trace is
// NOT thread-safe - mutate it from the goroutine that owns it. Handlers
// receive a Snapshot, a deep copy that is safe to retain.
//
// Errors:
//
// Only state-machine misuse fails: Start on a trace that is not
// uninitialized returns ErrTraceAlreadyStarted, Stop on a trace that is
// not running returns ErrTraceAlreadyStopped. Missing timing data is never
// an error.
package perfz

// Key represents a trace name.
type Key = string

// Counter names recorded by the page-load trace.
const (
	DomInteractiveCounter       = "domInteractive"
	DomContentLoadedCounter     = "domContentLoadedEventEnd"
	LoadEventEndCounter         = "loadEventEnd"
	FirstPaintCounter           = "_fp"
	FirstContentfulPaintCounter = "_fcp"
	FirstInputDelayCounter      = "_fid"
)

// PageLoadPrefix prefixes the route in page-load trace names.
const PageLoadPrefix = "_wt_"

const (
	startMarkPrefix = "PERFZ-TRACE-START"
	stopMarkPrefix  = "PERFZ-TRACE-STOP"
	measurePrefix   = "PERFZ-TRACE-MEASURE"
)
