// Package metrics registers the Prometheus collectors of the directory
// service. Collectors live in the default registry and are exposed by the
// HTTP server on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "directory"

var (
	// EmployeeOperations counts service operations by outcome.
	// Labels: operation, outcome (ok, not_found, invalid, conflict, error)
	EmployeeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "employees",
		Name:      "operations_total",
		Help:      "Employee operations by outcome",
	}, []string{"operation", "outcome"})

	// MintRetries counts identifier collisions that forced a retry.
	MintRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "employees",
		Name:      "mint_retries_total",
		Help:      "Employee identifier collisions retried during create",
	})

	// IdempotentReplays counts creates answered from a stored idempotency key.
	IdempotentReplays = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "employees",
		Name:      "idempotent_replays_total",
		Help:      "Creates answered from a previously completed idempotency key",
	})

	// HTTPRequests counts served requests.
	// Labels: method, route (chi route pattern), status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration measures request latency.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"})

	// ImportRows counts rows processed by the bulk importer.
	// Labels: result (created, failed)
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Rows processed by the bulk importer",
	}, []string{"result"})
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, route, status string, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
