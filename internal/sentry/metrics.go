package sentry

import "github.com/prometheus/client_golang/prometheus"

// Pipeline metrics, exposed on the shared /metrics endpoint.
var (
	alertsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_alerts_emitted_total",
			Help: "Alerts accepted into history, by type and priority.",
		},
		[]string{"type", "priority"},
	)
	alertsSuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentry_alerts_suppressed_total",
			Help: "Alerts dropped because their ID was already in history.",
		},
	)
	voiceDeliveriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentry_voice_deliveries_total",
			Help: "Alerts delivered through the voice sink.",
		},
	)
	cycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentry_cycle_duration_seconds",
			Help:    "Detection cycle duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	cycleErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentry_cycle_errors_total",
			Help: "Detection cycles that recovered from a panic.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		alertsEmittedTotal,
		alertsSuppressedTotal,
		voiceDeliveriesTotal,
		cycleDurationSeconds,
		cycleErrorsTotal,
	)
}
