// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the service records into.
type Metrics struct {
	registry *prometheus.Registry

	Recomputations    prometheus.Counter
	LateDoses         prometheus.Gauge
	TrackedMedicines  prometheus.Gauge
	DoseEvents        *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
	StoreErrors       *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Recomputations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dosewise_recomputations_total",
			Help: "Reminder view recomputations, user-triggered and polled.",
		}),
		LateDoses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dosewise_late_doses",
			Help: "Currently late, unacknowledged doses.",
		}),
		TrackedMedicines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dosewise_tracked_medicines",
			Help: "Medicines in the store.",
		}),
		DoseEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dosewise_dose_events_total",
			Help: "Dose toggle events by resulting status.",
		}, []string{"status"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dosewise_notifications_total",
			Help: "Notifications dispatched by kind.",
		}, []string{"kind"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dosewise_store_errors_total",
			Help: "Medicine store failures by operation.",
		}, []string{"op"}),
	}

	registry.MustRegister(
		m.Recomputations,
		m.LateDoses,
		m.TrackedMedicines,
		m.DoseEvents,
		m.NotificationsSent,
		m.StoreErrors,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
