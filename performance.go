package perfz

// Entry is a timing record held by a Performance.
// Times are milliseconds relative to the time origin.
type Entry struct {
	Name      string  `json:"name"`
	EntryType string  `json:"entry_type"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
}

// Entry types.
const (
	EntryMark    = "mark"
	EntryMeasure = "measure"
)

// Performance is the host timing facility traces are measured against.
type Performance interface {
	// Mark records an instantaneous entry under name.
	Mark(name string)
	// Measure records an interval entry under name spanning two marks.
	Measure(name, startMark, endMark string)
	// EntriesByName returns the entries recorded under name, possibly none.
	EntriesByName(name string) []Entry
	// TimeOrigin returns the absolute time origin in epoch milliseconds.
	TimeOrigin() float64
	// URL returns the current route, if one is known.
	URL() (string, bool)
}

// Reporter receives completed traces.
type Reporter interface {
	Report(trace *Trace)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(trace *Trace)

// Report calls f(trace).
func (f ReporterFunc) Report(trace *Trace) {
	f(trace)
}
