package moodle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// call outcomes
const (
	outcomeOK        = "ok"
	outcomeLogical   = "logical_error"
	outcomeTransport = "transport_error"
)

var (
	upstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodlegw_upstream_calls_total",
			Help: "Moodle web-service calls by function and outcome.",
		},
		[]string{"wsfunction", "outcome"},
	)

	upstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodlegw_upstream_call_duration_seconds",
			Help:    "Duration of Moodle web-service calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"wsfunction"},
	)
)

func observeCall(function, outcome string, start time.Time) {
	upstreamCallsTotal.WithLabelValues(function, outcome).Inc()
	upstreamCallDuration.WithLabelValues(function).Observe(time.Since(start).Seconds())
}
