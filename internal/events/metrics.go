package events

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetsync",
		Subsystem: "events",
		Name:      "consumed_total",
		Help:      "Events consumed from the queue, by kind and result.",
	}, []string{"kind", "result"})

	eventDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fleetsync",
		Subsystem: "events",
		Name:      "handle_duration_seconds",
		Help:      "Time spent applying one event.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"kind"})
)

func recordEvent(kind string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "dropped"
	}
	eventsConsumedTotal.WithLabelValues(kind, result).Inc()
	eventDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
