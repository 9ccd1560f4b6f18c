package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roadmap"

// Metrics owns a private registry so independent instances (tests, multiple
// servers) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	GuardDecisions *prometheus.CounterVec
	ProxyRequests  *prometheus.CounterVec
	ProxyDuration  prometheus.Histogram
	ServiceTokens  *prometheus.CounterVec
	Logins         *prometheus.CounterVec
	Registrations  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		GuardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Access guard decisions by outcome.",
		}, []string{"decision"}),
		ProxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Proxied backend requests by method and relayed status.",
		}, []string{"method", "status"}),
		ProxyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_request_duration_seconds",
			Help:      "Latency of outbound backend calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		ServiceTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_tokens_total",
			Help:      "Service token mint attempts by result.",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by provider and result.",
		}, []string{"provider", "result"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.GuardDecisions,
		m.ProxyRequests,
		m.ProxyDuration,
		m.ServiceTokens,
		m.Logins,
		m.Registrations,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
