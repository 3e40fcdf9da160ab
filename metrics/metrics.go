// Package metrics exposes reported perfz traces as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zoobzio/perfz"
)

// DefaultNamespace prefixes metric names when Config.Namespace is empty.
const DefaultNamespace = "perfz"

// Config controls metric naming and labels.
type Config struct {
	Namespace   string
	ServiceName string
	// Buckets for the duration histogram, in seconds.
	Buckets []float64
}

// Metrics records reported traces into a Prometheus registry.
type Metrics struct {
	Registry *prometheus.Registry
	reports  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	counters *prometheus.GaugeVec
	untimed  *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New(cfg Config) *Metrics {
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.ExponentialBuckets(0.001, 2, 16)
	}

	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "traces_reported_total",
			Help:      "Number of reported traces.",
		}, []string{"trace", "auto"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "trace_duration_seconds",
			Help:      "Duration of reported traces.",
			Buckets:   buckets,
		}, []string{"trace", "auto"}),
		counters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "trace_counter",
			Help:      "Last reported value of a trace counter.",
		}, []string{"trace", "counter"}),
		untimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "traces_untimed_total",
			Help:      "Reported traces that carried no duration.",
		}, []string{"trace"}),
	}

	reg := prometheus.Registerer(m.Registry)
	if cfg.ServiceName != "" {
		reg = prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, reg)
	}
	reg.MustRegister(m.reports, m.duration, m.counters, m.untimed)
	return m
}

// FromPerfz derives a metrics config from a monitor config.
func FromPerfz(cfg perfz.Config) Config {
	return Config{ServiceName: cfg.ServiceName}
}

// Observe records one reported trace.
func (m *Metrics) Observe(s perfz.Snapshot) {
	auto := strconv.FormatBool(s.Auto)
	m.reports.WithLabelValues(s.Name, auto).Inc()

	if s.DurationUs != nil {
		m.duration.WithLabelValues(s.Name, auto).Observe(s.Duration().Seconds())
	} else {
		m.untimed.WithLabelValues(s.Name).Inc()
	}

	for name, v := range s.Counters {
		m.counters.WithLabelValues(s.Name, name).Set(float64(v))
	}
}

// Handler returns a TraceHandler feeding these metrics.
func (m *Metrics) Handler() perfz.TraceHandler {
	return m.Observe
}

// HTTPHandler serves the registry in the Prometheus exposition format.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
