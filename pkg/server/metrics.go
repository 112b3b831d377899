package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the server. All methods
// are nil-safe so instrumentation can be left unconfigured.
type Metrics struct {
	activeSessions prometheus.Gauge
	sessionsTotal  prometheus.Counter
	eventsTotal    *prometheus.CounterVec
	eventDuration  prometheus.Histogram
	patchesSent    prometheus.Counter
	patchBytes     prometheus.Counter
	renderDuration prometheus.Histogram
	streamChunks   prometheus.Counter
	wsErrors       *prometheus.CounterVec
}

// MetricsConfig configures metric registration.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "rmx").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// NewMetrics registers the server instruments and returns them.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "rmx"
	}
	if config.Buckets == nil {
		config.Buckets = prometheus.DefBuckets
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_sessions",
			Help:        "Number of live websocket sessions",
			ConstLabels: config.ConstLabels,
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "sessions_total",
			Help:        "Total number of sessions created",
			ConstLabels: config.ConstLabels,
		}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "events_total",
			Help:        "Total client events processed, by type and status",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "status"}),
		eventDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "event_duration_seconds",
			Help:        "Event dispatch and re-render duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		patchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "patches_sent_total",
			Help:        "Total DOM mutations sent to clients",
			ConstLabels: config.ConstLabels,
		}),
		patchBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "patch_bytes_total",
			Help:        "Total encoded patch bytes sent to clients",
			ConstLabels: config.ConstLabels,
		}),
		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "render_duration_seconds",
			Help:        "Streaming SSR duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		streamChunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "stream_chunks_total",
			Help:        "Total SSR chunks flushed to responses",
			ConstLabels: config.ConstLabels,
		}),
		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "websocket_errors_total",
			Help:        "Total websocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) eventHandled(typ, status string, seconds float64) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(typ, status).Inc()
	m.eventDuration.Observe(seconds)
}

func (m *Metrics) patchSent(mutations, bytes int) {
	if m == nil {
		return
	}
	m.patchesSent.Add(float64(mutations))
	m.patchBytes.Add(float64(bytes))
}

func (m *Metrics) renderDone(seconds float64, chunks int) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(seconds)
	m.streamChunks.Add(float64(chunks))
}

func (m *Metrics) wsError(typ string) {
	if m == nil {
		return
	}
	m.wsErrors.WithLabelValues(typ).Inc()
}
