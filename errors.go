package perfz

import (
	"errors"
	"fmt"
)

// Sentinel errors for illegal trace state transitions.
var (
	ErrTraceAlreadyStarted = errors.New("trace already started")
	ErrTraceAlreadyStopped = errors.New("trace already stopped")
)

// TraceError reports a state-machine violation on a named trace.
type TraceError struct {
	Err  error
	Name string
}

func (e *TraceError) Error() string {
	return fmt.Sprintf("trace %q: %v", e.Name, e.Err)
}

// Unwrap exposes the sentinel for errors.Is.
func (e *TraceError) Unwrap() error {
	return e.Err
}
