// Package metrics provides the Prometheus registry and HTTP handler for the
// artworks browser. All metrics are defined in their respective packages
// (client, ratelimit, pagination, session) to avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - artic_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - artic_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - artic_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Retry Metrics (pkg/client, only with retries enabled):
//   - artic_retries_total{error_class} (Counter): Retry attempts by error class
//   - artic_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - artic_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - artic_rate_limit_used (Gauge): Requests counted in the current window
//   - artic_rate_limit_blocks_total (Counter): Requests blocked over budget or after a 429
//   - artic_rate_limit_throttles_total (Counter): Requests delayed near the budget
//
// Pagination Metrics (pkg/pagination):
//   - artic_page_fetches_total{outcome} (Counter): Page fetches by outcome (ok, exhausted, failed)
//   - artic_accumulation_runs_total{stop} (Counter): Auto-select runs by stop reason
//   - artic_accumulated_items (Counter): Items appended by auto-select runs
//
// Session Metrics (pkg/session):
//   - artic_session_store_hits_total{store} (Counter): Session lookups that hit
//   - artic_session_store_misses_total{store} (Counter): Unknown or expired sessions
//   - artic_session_store_errors_total{store, operation} (Counter): Store errors
//
// Example Prometheus Queries:
//
//   # Page fetch failure rate
//   sum(rate(artic_page_fetches_total{outcome="failed"}[5m])) /
//   sum(rate(artic_page_fetches_total[5m]))
//
//   # Budget headroom
//   60 - artic_rate_limit_used
//
//   # Under-filled auto-select runs
//   rate(artic_accumulation_runs_total{stop!="satisfied"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(artic_request_duration_seconds_bucket[5m]))
