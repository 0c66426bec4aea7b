// Package metrics exposes the bot's prometheus instrumentation on a
// dedicated registry served from the webhook server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors shared by the checker, scheduler, and
// notifiers.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal        *prometheus.CounterVec
	CycleErrors        *prometheus.CounterVec
	CycleDuration      *prometheus.HistogramVec
	EventsNew          *prometheus.CounterVec
	EventsResolved     *prometheus.CounterVec
	NotificationsSent  *prometheus.CounterVec
	NotificationErrors *prometheus.CounterVec
	TrackedActive      prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outagebot",
			Name:      "poll_cycles_total",
			Help:      "Poll cycles run, per source.",
		}, []string{"source"}),
		CycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outagebot",
			Name:      "poll_cycle_errors_total",
			Help:      "Poll cycles that failed, per source.",
		}, []string{"source"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "outagebot",
			Name:      "poll_cycle_duration_seconds",
			Help:      "Poll cycle duration, per source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		EventsNew: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outagebot",
			Name:      "events_new_total",
			Help:      "Newly tracked incidents, per platform.",
		}, []string{"platform"}),
		EventsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outagebot",
			Name:      "events_resolved_total",
			Help:      "Incidents resolved by reconcile or force-resolve, per platform.",
		}, []string{"platform"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outagebot",
			Name:      "notifications_sent_total",
			Help:      "Notifications delivered, per sink.",
		}, []string{"sink"}),
		NotificationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outagebot",
			Name:      "notification_errors_total",
			Help:      "Notification deliveries that failed, per sink.",
		}, []string{"sink"}),
		TrackedActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outagebot",
			Name:      "tracked_active_events",
			Help:      "Currently active tracked incidents.",
		}),
	}

	m.registry.MustRegister(
		m.CyclesTotal, m.CycleErrors, m.CycleDuration,
		m.EventsNew, m.EventsResolved,
		m.NotificationsSent, m.NotificationErrors,
		m.TrackedActive,
	)
	return m
}

// Registry returns the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
