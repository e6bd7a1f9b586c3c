package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the pagination controller.
var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_fetches_total",
		Help: "Total batch fetch attempts by outcome",
	}, []string{"outcome"}) // "success", "failure"

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_fetch_duration_seconds",
		Help:    "Time from issuing a batch fetch to applying its result",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10},
	})

	recordsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_records_applied_total",
		Help: "Total records appended to loaded sequences",
	})

	requestsIgnoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_requests_ignored_total",
		Help: "Next-batch requests ignored because the controller was busy or exhausted",
	}, []string{"reason"}) // "uninitialized", "fetching", "exhausted"

	exhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_exhausted_total",
		Help: "Total controllers that reached the exhausted state",
	})
)
