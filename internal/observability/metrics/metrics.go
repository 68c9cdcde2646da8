// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	RegistrationsTotal *prometheus.CounterVec
	TransitionsTotal   *prometheus.CounterVec
	PortalDenialsTotal prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		RegistrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patient_registrations_total",
			Help: "Patient registrations by derived risk level.",
		}, []string{"risk_level"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_transitions_total",
			Help: "Test assignment transitions by target status and outcome.",
		}, []string{"target", "outcome"}),
		PortalDenialsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_access_denied_total",
			Help: "Denied patient portal access attempts.",
		}),
	}
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.RegistrationsTotal,
		m.TransitionsTotal,
		m.PortalDenialsTotal,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request. The path label is the
// route pattern, not the raw URL, to keep cardinality bounded.
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
