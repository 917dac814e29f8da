// Package metrics provides the centralized Prometheus metrics registry for the
// Toast ETL pipeline. All metrics are defined in their respective packages
// (client, auth, ratelimit, warehouse) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the pipeline.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - toast_requests_total{endpoint_class, status} (Counter): Total requests by endpoint class and HTTP status
//   - toast_request_duration_seconds{endpoint_class} (Histogram): Request duration by endpoint class
//   - toast_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - toast_rate_limited_total{endpoint_class} (Counter): 429 responses by endpoint class
//   - toast_pages_fetched_total{endpoint_class} (Counter): Pages fetched by endpoint class
//   - toast_records_fetched_total{endpoint_class} (Counter): Records accepted by endpoint class
//   - toast_records_dropped_total{endpoint_class} (Counter): Records dropped by validation
//
// Retry Metrics (pkg/client):
//   - toast_retries_total{error_class} (Counter): Retry attempts by error class
//   - toast_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - toast_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Token Metrics (pkg/auth):
//   - toast_token_cache_hits_total (Counter): Token requests served from the cached token
//   - toast_token_refreshes_total (Counter): Successful token refreshes
//   - toast_token_refresh_failures_total (Counter): Failed login attempts
//
// Rate Limit Metrics (pkg/ratelimit):
//   - toast_rate_limit_wait_seconds{endpoint_class} (Histogram): Time spent waiting on the floor interval
//
// Warehouse Metrics (pkg/warehouse):
//   - toast_rows_staged_total{table} (Counter): Rows written to staging tables
//   - toast_rows_inserted_total{table} (Counter): Rows inserted into target tables
//   - toast_duplicates_skipped_total{table} (Counter): Staged rows skipped by the dedup merge
//   - toast_load_errors_total{table} (Counter): Load calls that failed softly
//   - toast_load_duration_seconds{table} (Histogram): Load duration by table
//
// Example Prometheus Queries:
//
//   # Token Cache Hit Rate
//   sum(rate(toast_token_cache_hits_total[5m])) /
//   (sum(rate(toast_token_cache_hits_total[5m])) + sum(rate(toast_token_refreshes_total[5m])))
//
//   # Request Error Rate
//   rate(toast_errors_total[5m])
//
//   # P95 Request Latency by Endpoint Class
//   histogram_quantile(0.95, rate(toast_request_duration_seconds_bucket[5m]))
//
//   # Duplicate Ratio per Table
//   rate(toast_duplicates_skipped_total[1h]) /
//   (rate(toast_rows_inserted_total[1h]) + rate(toast_duplicates_skipped_total[1h]))
//
//   # 429 Pressure
//   rate(toast_rate_limited_total[5m])
