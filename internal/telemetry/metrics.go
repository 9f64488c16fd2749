// Package telemetry exposes the process's Prometheus instrumentation.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors the read surface updates.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts adapter reads by operation and outcome kind
	// ("ok" or the broker error kind).
	RequestsTotal *prometheus.CounterVec
	// EventsDelivered counts job events fanned out to transports.
	EventsDelivered prometheus.Counter
	// EventsDropped counts events shed by slow subscriber sinks.
	EventsDropped prometheus.Counter
	// Subscribers tracks currently attached event subscribers.
	Subscribers prometheus.Gauge
}

// New builds a Metrics set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "queuevision",
			Name:      "requests_total",
			Help:      "Adapter read operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		EventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "queuevision",
			Name:      "events_delivered_total",
			Help:      "Job events delivered to subscriber sinks.",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "queuevision",
			Name:      "events_dropped_total",
			Help:      "Job events shed because a subscriber sink fell behind.",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "queuevision",
			Name:      "event_subscribers",
			Help:      "Currently attached event subscribers.",
		}),
	}
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one adapter read outcome.
func (m *Metrics) ObserveRequest(op, outcome string) {
	m.RequestsTotal.WithLabelValues(op, outcome).Inc()
}
