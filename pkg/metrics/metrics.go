// Package metrics provides Prometheus metrics collection for the protocol
// engine.
//
// Metrics are optional. Components take an EngineMetrics and fall back to a
// no-op implementation when none is given, so a server runs the same with or
// without a registry.
//
// Usage:
//
//	reg := metrics.NewRegistry()
//	m := prometheus.NewEngineMetrics(reg)
//	srv, _ := server.New(vars, server.WithMetrics(m))
//	go metrics.NewServer(metrics.ServerConfig{Port: 9090}, reg, logger).Start(ctx)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// EngineMetrics provides observability for protocol engine operations.
type EngineMetrics interface {
	// RecordRequest records a completed request with its operation name,
	// response status and processing time.
	RecordRequest(operation, status string, duration time.Duration)

	// RecordEventPosted counts a monitor event queued for one subscription.
	RecordEventPosted()

	// RecordEventDropped counts a monitor event discarded because the
	// connection was gone or its queue was full.
	RecordEventDropped()

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int)

	// SetSubscriptions updates the current subscription count.
	SetSubscriptions(count int)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordTransientError counts a send failure on a connection.
	RecordTransientError()
}

// NewRegistry returns a registry with the Go runtime and process
// collectors registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewNoop returns an EngineMetrics that records nothing.
func NewNoop() EngineMetrics {
	return noopEngineMetrics{}
}

// OrNoop returns m, or a no-op implementation if m is nil.
func OrNoop(m EngineMetrics) EngineMetrics {
	if m == nil {
		return noopEngineMetrics{}
	}
	return m
}

// noopEngineMetrics is a no-op implementation of EngineMetrics.
type noopEngineMetrics struct{}

func (noopEngineMetrics) RecordRequest(string, string, time.Duration) {}
func (noopEngineMetrics) RecordEventPosted()                          {}
func (noopEngineMetrics) RecordEventDropped()                         {}
func (noopEngineMetrics) SetActiveConnections(int)                    {}
func (noopEngineMetrics) SetSubscriptions(int)                        {}
func (noopEngineMetrics) RecordConnectionAccepted()                   {}
func (noopEngineMetrics) RecordConnectionClosed()                     {}
func (noopEngineMetrics) RecordTransientError()                       {}
