package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_fallback_upstream_attempts_total",
			Help: "Total number of upstream attempts",
		},
		[]string{"provider", "model", "outcome"}, // outcome: success, failure, cancelled
	)

	attemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_fallback_upstream_duration_seconds",
			Help:    "Latency of successful upstream attempts in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"provider"},
	)

	cooloffWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_fallback_cooloff_writes_total",
			Help: "Total number of cool-off records written",
		},
		[]string{"result"},
	)

	exhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_fallback_exhausted_total",
			Help: "Total number of requests that ended without a successful upstream",
		},
		[]string{"reason"}, // reason: no_candidates, all_failed
	)
)
