package observability

import (
	"errors"
	"time"

	"retouchly/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EngagementOperations counts engagement operations by action and outcome code.
	EngagementOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retouchly_engagement_operations_total",
		Help: "Engagement operations by action and outcome",
	}, []string{"action", "outcome"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "retouchly_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FeedCacheLookups counts feed cache hits and misses.
	FeedCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retouchly_feed_cache_lookups_total",
		Help: "Feed cache lookups by result",
	}, []string{"result"})

	// EventsDelivered counts engagement events acknowledged or rejected by Kafka.
	EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retouchly_engagement_events_delivered_total",
		Help: "Engagement events delivered to Kafka by result",
	}, []string{"result"})
)

// RecordEngagement increments the operation counter with an outcome derived from err.
func RecordEngagement(action string, err error) {
	EngagementOperations.WithLabelValues(action, Outcome(err)).Inc()
}

// Outcome maps an error to a low-cardinality metric label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
