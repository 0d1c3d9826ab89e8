package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels for review metrics
const (
	OpSubmit = "submit"
	OpQuery  = "query"
	OpStats  = "stats"
)

var (
	// StoreDegraded counts reads answered with the empty state because the store failed
	StoreDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_store_degraded_total",
			Help: "Reads that fell back to the empty state after a store error",
		},
		[]string{"operation"},
	)

	// StoreErrors counts store failures by operation, writes included
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_store_errors_total",
			Help: "Review store operations that failed",
		},
		[]string{"operation"},
	)

	// CacheRequests counts partition cache lookups by outcome (hit, miss, error, bypass)
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_cache_requests_total",
			Help: "Partition cache lookups by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// ReviewsSubmitted counts accepted reviews
	ReviewsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Reviews accepted by the store",
		},
	)
)
