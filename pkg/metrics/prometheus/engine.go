// Package prometheus implements metrics.EngineMetrics with Prometheus
// collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/softioc/softioc-go/pkg/metrics"
)

// engineMetrics is the Prometheus implementation of metrics.EngineMetrics.
type engineMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	eventsPosted        prometheus.Counter
	eventsDropped       prometheus.Counter
	activeConnections   prometheus.Gauge
	subscriptions       prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	transientErrors     prometheus.Counter
}

// NewEngineMetrics registers the engine collectors on reg. A nil reg
// returns a no-op implementation.
func NewEngineMetrics(reg prometheus.Registerer) metrics.EngineMetrics {
	if reg == nil {
		return metrics.NewNoop()
	}

	return &engineMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "softioc_requests_total",
				Help: "Total number of requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "softioc_request_duration_seconds",
				Help: "Duration of request processing in seconds",
				Buckets: []float64{
					0.0001, // 100us
					0.0005, // 500us
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"operation"},
		),
		eventsPosted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "softioc_monitor_events_posted_total",
				Help: "Total number of monitor events queued to subscribers",
			},
		),
		eventsDropped: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "softioc_monitor_events_dropped_total",
				Help: "Total number of monitor events discarded",
			},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "softioc_active_connections",
				Help: "Current number of client connections",
			},
		),
		subscriptions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "softioc_subscriptions",
				Help: "Current number of monitor subscriptions",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "softioc_connections_accepted_total",
				Help: "Total number of client connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "softioc_connections_closed_total",
				Help: "Total number of client connections closed",
			},
		),
		transientErrors: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "softioc_transient_errors_total",
				Help: "Total number of failed sends to clients",
			},
		),
	}
}

func (m *engineMetrics) RecordRequest(operation, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *engineMetrics) RecordEventPosted() {
	m.eventsPosted.Inc()
}

func (m *engineMetrics) RecordEventDropped() {
	m.eventsDropped.Inc()
}

func (m *engineMetrics) SetActiveConnections(count int) {
	m.activeConnections.Set(float64(count))
}

func (m *engineMetrics) SetSubscriptions(count int) {
	m.subscriptions.Set(float64(count))
}

func (m *engineMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *engineMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *engineMetrics) RecordTransientError() {
	m.transientErrors.Inc()
}
