// Package metrics provides the Prometheus registry and scrape handler for the feed.
// All metrics are defined in their respective packages (pagination, source,
// cache, session, server) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the feed.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry scraped by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Pagination Metrics (pkg/pagination):
//   - feed_fetches_total{outcome} (Counter): Batch fetches by outcome (success, failure)
//   - feed_fetch_duration_seconds (Histogram): Time from issuing a fetch to its resolution
//   - feed_records_applied_total (Counter): Records appended to loaded sequences
//   - feed_requests_ignored_total{reason} (Counter): Next-batch requests ignored (uninitialized, fetching, exhausted)
//   - feed_exhausted_total (Counter): Feeds that reached the exhausted state
//
// Source Metrics (pkg/source):
//   - feed_source_requests_total{status} (Counter): Remote batch requests by HTTP status
//   - feed_source_request_duration_seconds (Histogram): Remote batch request duration
//   - feed_source_errors_total{class} (Counter): Remote errors by class (client, server, network, decode)
//
// Cache Metrics (pkg/cache):
//   - feed_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - feed_cache_misses_total (Counter): Cache misses
//   - feed_cache_size_bytes{layer="redis"} (Gauge): Bytes moved through the cache
//   - feed_cache_errors_total{operation} (Counter): Cache operation errors
//
// Session Metrics (pkg/session):
//   - feed_sessions_active (Gauge): Live sessions
//   - feed_sessions_created_total (Counter): Sessions created
//
// HTTP Metrics (pkg/server):
//   - feed_http_requests_total{route, status} (Counter): API requests
//   - feed_http_request_duration_seconds{route} (Histogram): API request duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(feed_cache_hits_total[5m])) /
//   (sum(rate(feed_cache_hits_total[5m])) + sum(rate(feed_cache_misses_total[5m])))
//
//   # Fetch Failure Rate
//   rate(feed_fetches_total{outcome="failure"}[5m]) / rate(feed_fetches_total[5m])
//
//   # Requests ignored while a fetch was outstanding
//   rate(feed_requests_ignored_total{reason="fetching"}[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(feed_fetch_duration_seconds_bucket[5m]))
