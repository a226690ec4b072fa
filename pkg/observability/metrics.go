// Package observability provides Prometheus metrics, OpenTelemetry tracing
// setup, and a small HTTP server exposing health and metrics endpoints.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentkit_turns_total",
			Help: "Total number of agent turns by terminal status",
		},
		[]string{"status"},
	)

	backendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentkit_backend_calls_total",
			Help: "Total number of backend generate calls",
		},
		[]string{"provider", "status"},
	)

	backendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentkit_backend_call_duration_seconds",
			Help:    "Backend generate call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentkit_tool_calls_total",
			Help: "Total number of tool invocations",
		},
		[]string{"tool", "status"},
	)

	toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentkit_tool_call_duration_seconds",
			Help:    "Tool invocation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)

var metricsOnce sync.Once

// InitMetrics registers all collectors with the default registerer. It is
// safe to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(
			turnsTotal,
			backendCallsTotal,
			backendCallDuration,
			toolCallsTotal,
			toolCallDuration,
		)
	})
}

// RecordTurn counts a terminal turn outcome ("ok" or "error").
func RecordTurn(status string) {
	turnsTotal.WithLabelValues(status).Inc()
}

// RecordBackendCall observes one backend generate round-trip.
func RecordBackendCall(provider, status string, elapsed time.Duration) {
	backendCallsTotal.WithLabelValues(provider, status).Inc()
	backendCallDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// RecordToolCall observes one tool invocation.
func RecordToolCall(tool, status string, elapsed time.Duration) {
	toolCallsTotal.WithLabelValues(tool, status).Inc()
	toolCallDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
