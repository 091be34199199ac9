package sync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetsync",
			Subsystem: "engine",
			Name:      "sync_passes_total",
			Help:      "Total reconciliation passes by handler and result",
		},
		[]string{"handler", "result"},
	)

	syncPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fleetsync",
			Subsystem: "engine",
			Name:      "sync_pass_duration_seconds",
			Help:      "Duration of one reconciliation pass in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"handler"},
	)

	instanceWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetsync",
			Subsystem: "engine",
			Name:      "instance_writes_total",
			Help:      "Instance operations applied by handler and operation",
		},
		[]string{"handler", "op"},
	)

	generationEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleetsync",
			Subsystem: "engine",
			Name:      "generation_evictions_total",
			Help:      "Container generations evicted by the retention limit",
		},
	)
)

// recordPass records the outcome and duration of one reconciliation pass.
func recordPass(handler string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	syncPassesTotal.WithLabelValues(handler, result).Inc()
	syncPassDuration.WithLabelValues(handler).Observe(time.Since(start).Seconds())
}

// recordWrites records applied instance operations.
func recordWrites(handler string, added, updated, deleted int) {
	if added > 0 {
		instanceWritesTotal.WithLabelValues(handler, "add").Add(float64(added))
	}
	if updated > 0 {
		instanceWritesTotal.WithLabelValues(handler, "update").Add(float64(updated))
	}
	if deleted > 0 {
		instanceWritesTotal.WithLabelValues(handler, "delete").Add(float64(deleted))
	}
}
