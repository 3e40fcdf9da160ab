package perfz

import "go.uber.org/zap"

// NavigationTiming is the subset of a navigation timing record used by the
// page-load trace. Values are milliseconds relative to the time origin.
type NavigationTiming struct {
	Duration                 float64 `json:"duration"`
	DomInteractive           float64 `json:"dom_interactive"`
	DomContentLoadedEventEnd float64 `json:"dom_content_loaded_event_end"`
	LoadEventEnd             float64 `json:"load_event_end"`
}

// PaintTiming is a paint timing record.
type PaintTiming struct {
	Name      string  `json:"name"`
	StartTime float64 `json:"start_time"`
}

// Paint entry names.
const (
	FirstPaint           = "first-paint"
	FirstContentfulPaint = "first-contentful-paint"
)

// RecordPageLoad synthesizes and reports the page-load trace for the
// current route. It returns nil, reporting nothing, when no route is known.
func (m *Monitor) RecordPageLoad(nav []NavigationTiming, paint []PaintTiming, firstInputDelay *float64) *Trace {
	route, ok := m.perf.URL()
	if !ok || route == "" {
		m.logger.Debug("page load skipped, no route available")
		return nil
	}

	t := newTrace(m.perf, m, m.correlationID, PageLoadPrefix+route, withAuto())
	t.setStartTimeUs(toMicros(m.perf.TimeOrigin()))

	if len(nav) > 0 {
		n := nav[0]
		t.setDurationUs(toMicros(n.Duration))
		t.PutMetric(DomInteractiveCounter, float64(toMicros(n.DomInteractive)))
		t.PutMetric(DomContentLoadedCounter, float64(toMicros(n.DomContentLoadedEventEnd)))
		t.PutMetric(LoadEventEndCounter, float64(toMicros(n.LoadEventEnd)))
	}

	if fp, ok := findPaint(paint, FirstPaint); ok && fp.StartTime > 0 {
		t.PutMetric(FirstPaintCounter, float64(toMicros(fp.StartTime)))
	}
	if fcp, ok := findPaint(paint, FirstContentfulPaint); ok && fcp.StartTime > 0 {
		t.PutMetric(FirstContentfulPaintCounter, float64(toMicros(fcp.StartTime)))
	}
	if firstInputDelay != nil {
		t.PutMetric(FirstInputDelayCounter, float64(toMicros(*firstInputDelay)))
	}

	m.logger.Debug("page load synthesized", zap.String("route", route))
	t.report()
	return t
}

func findPaint(paint []PaintTiming, name string) (PaintTiming, bool) {
	for _, p := range paint {
		if p.Name == name {
			return p, true
		}
	}
	return PaintTiming{}, false
}

// RecordUserTiming adopts a measure created directly on the Performance
// and reports it as a trace of the same name.
func (m *Monitor) RecordUserTiming(measureName string) *Trace {
	t := m.NewTrace(measureName, WithMeasure(measureName))
	t.report()
	return t
}
