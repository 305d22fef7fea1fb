// Package metrics exposes Prometheus metrics for the media internals service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edumarques81/stellar-media-internals/internal/ingest"
)

const namespace = "media_internals"

// Push outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Metrics holds the Prometheus collectors of the service. It implements
// ingest.Metrics and, through Observer, media.Observer.
type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    prometheus.Counter
	errorsTotal      prometheus.Counter
	messagesTotal    *prometheus.CounterVec
	playerEvents     prometheus.Counter
	players          prometheus.Gauge
	audioComponents  *prometheus.GaugeVec
	dashboardClients prometheus.Gauge
}

// New creates and registers the service metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_total",
			Help:      "Instrumentation pushes by kind and outcome",
		}, []string{"kind", "outcome"}),
		playerEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "player_updates_total",
			Help:      "Player property updates applied to the aggregate",
		}),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players",
			Help:      "Number of tracked players",
		}),
		audioComponents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audio_components",
			Help:      "Number of tracked audio components by type",
		}, []string{"type"}),
		dashboardClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_clients",
			Help:      "Number of connected dashboard clients",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.messagesTotal,
		m.playerEvents,
		m.players,
		m.audioComponents,
		m.dashboardClients,
		collectors.NewGoCollector(),
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// MessageAccepted implements ingest.Metrics.
func (m *Metrics) MessageAccepted(kind ingest.Kind) {
	m.messagesTotal.WithLabelValues(string(kind), OutcomeAccepted).Inc()
}

// MessageRejected implements ingest.Metrics.
func (m *Metrics) MessageRejected(kind ingest.Kind, _ error) {
	if !kind.Valid() {
		// Keep label cardinality bounded.
		kind = "unknown"
	}
	m.messagesTotal.WithLabelValues(string(kind), OutcomeRejected).Inc()
}

// SetDashboardClients sets the connected dashboard client gauge.
func (m *Metrics) SetDashboardClients(n int) {
	m.dashboardClients.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		h.ServeHTTP(w, r)
	})
}
