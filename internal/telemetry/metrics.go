// Package telemetry provides application-level observability for the helpdesk
// platform.
//
// All metrics are registered against the default Prometheus registry and served
// on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<HDP_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router, so it stays
// off the public ingress and outside the rate-limiting middleware.
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/tickets/:id)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments.
//
// The security-layer counters exist because silent failures there are the
// dangerous kind: a binding failure or reset failure never surfaces to the
// caller as anything other than a generic error, so the counters are the
// operational signal that the isolation layer is struggling.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts processed HTTP requests by method, route
	// template, and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration is a latency histogram by method and route template.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// BindingFailuresTotal counts requests whose security-context binding could
	// not be applied. Every increment is a request that failed closed.
	BindingFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "security_binding_failures_total",
			Help: "Total number of requests whose security context binding failed to apply.",
		},
	)

	// BindingResetFailuresTotal counts failed deny-by-default resets on pool
	// release. Nonzero values warrant immediate attention.
	BindingResetFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "security_binding_reset_failures_total",
			Help: "Total number of failed security-setting resets before connection pool release.",
		},
	)

	// AccessDeniedTotal counts authorization denials by kind (role, permission,
	// tenant).
	AccessDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_access_denied_total",
			Help: "Total number of requests denied by the access guard, by check kind.",
		},
		[]string{"check"},
	)

	// AuditDroppedTotal counts audit entries that could not be persisted or
	// shipped. Audit writes are best-effort; this is the only place drops show.
	AuditDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Total number of audit log entries dropped due to write or ship failures.",
		},
	)

	// DBConnectionsInUse gauges the connection pool state, polled every 30s.
	DBConnectionsInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_connections",
			Help: "Database connection pool state, by state (in_use, idle, open).",
		},
		[]string{"state"},
	)
)

// StartDBStatsCollector begins exporting connection pool statistics every 30
// seconds for the lifetime of the process.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := db.Stats()
			DBConnectionsInUse.WithLabelValues("in_use").Set(float64(stats.InUse))
			DBConnectionsInUse.WithLabelValues("idle").Set(float64(stats.Idle))
			DBConnectionsInUse.WithLabelValues("open").Set(float64(stats.OpenConnections))
		}
	}()
	slog.Debug("database pool stats collector started")
}
