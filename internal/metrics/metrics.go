// Package metrics exposes Prometheus instrumentation for the prober's
// tick loop and incident state, grounded in the pack's promauto usage
// (SPEC_FULL.md DOMAIN STACK).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProbesTotal counts every probe attempt, labeled by outcome.
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upwatch_probes_total",
		Help: "Total number of HTTP probes issued, labeled by outcome (ok/fail).",
	}, []string{"outcome"})

	// TickDuration measures how long one full pulse (scheduler.Tick) takes.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "upwatch_tick_duration_seconds",
		Help:    "Duration of a single scheduler pulse across all due monitors.",
		Buckets: prometheus.DefBuckets,
	})

	// OpenIncidents tracks the current count of open incidents.
	OpenIncidents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "upwatch_open_incidents",
		Help: "Current number of open incidents across all monitors.",
	})

	// AlertsEmitted counts alert events emitted by the incident machine.
	AlertsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upwatch_alerts_emitted_total",
		Help: "Total alert events emitted, labeled by kind (incident/recovered).",
	}, []string{"kind"})

	// NotificationsDispatched counts dispatcher delivery attempts.
	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upwatch_notifications_dispatched_total",
		Help: "Total notification dispatch attempts, labeled by status (sent/failed).",
	}, []string{"status"})
)
