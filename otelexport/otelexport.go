// Package otelexport replays reported perfz traces as OpenTelemetry spans.
//
// Each trace becomes one span whose start and end timestamps come from the
// trace timing, so spans land at the moment they were measured rather than
// when they were exported.
package otelexport

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoobzio/perfz"
)

// ScopeName is the instrumentation scope of exported spans.
const ScopeName = "github.com/zoobzio/perfz"

// Attribute key prefixes.
const (
	AttributePrefix = "perfz.attribute."
	CounterPrefix   = "perfz.counter."
	AutoKey         = "perfz.auto"
)

// Exporter converts snapshots to spans on a tracer provider.
type Exporter struct {
	tracer  trace.Tracer
	skipped func(perfz.Snapshot)
}

// New creates an exporter on tp.
func New(tp trace.TracerProvider) *Exporter {
	return &Exporter{tracer: tp.Tracer(ScopeName)}
}

// OnSkipped sets a callback for traces without a start time, which cannot
// be placed on a timeline and are not exported.
func (e *Exporter) OnSkipped(fn func(perfz.Snapshot)) {
	e.skipped = fn
}

// Export emits one span for the snapshot.
func (e *Exporter) Export(ctx context.Context, s perfz.Snapshot) {
	if s.StartTimeUs == nil {
		if e.skipped != nil {
			e.skipped(s)
		}
		return
	}

	start := s.StartTime()
	_, span := e.tracer.Start(ctx, s.Name,
		trace.WithTimestamp(start),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(Attributes(s)...),
	)
	span.End(trace.WithTimestamp(start.Add(s.Duration())))
}

// Handler returns a TraceHandler exporting with a background context.
func (e *Exporter) Handler() perfz.TraceHandler {
	return func(s perfz.Snapshot) {
		e.Export(context.Background(), s)
	}
}

// Attributes converts trace counters and attributes to span attributes.
func Attributes(s perfz.Snapshot) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, 1+len(s.Attributes)+len(s.Counters))
	kvs = append(kvs, attribute.Bool(AutoKey, s.Auto))
	for k, v := range s.Attributes {
		kvs = append(kvs, attribute.String(AttributePrefix+k, v))
	}
	for k, v := range s.Counters {
		kvs = append(kvs, attribute.Int64(CounterPrefix+k, v))
	}
	return kvs
}
