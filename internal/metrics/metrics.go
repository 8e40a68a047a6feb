// Package metrics exposes cache and graduation metrics via Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AgentWarden/AgentWarden/internal/permcache"
)

const namespace = "warden"

// Metrics owns the Prometheus registry and all Warden collectors.
type Metrics struct {
	registry *prometheus.Registry

	lookupLatency prometheus.Histogram
	transitions   *prometheus.CounterVec
	authorizeTot  *prometheus.CounterVec
}

// New builds the registry. Cache counters are read straight from the
// cache's own stats snapshot so the two never drift.
func New(cache *permcache.Cache) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "authorizer",
			Name:      "lookup_duration_seconds",
			Help:      "End-to-end authorization lookup latency",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2},
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graduation",
			Name:      "transitions_total",
			Help:      "Maturity transitions by action and target state",
		}, []string{"action", "to_state"}),
		authorizeTot: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authorizer",
			Name:      "decisions_total",
			Help:      "Authorization results by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(m.lookupLatency, m.transitions, m.authorizeTot)
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "size",
			Help: "Current number of cached decisions",
		}, func() float64 { return float64(cache.Stats().Size) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hit_rate_percent",
			Help: "Cache hit rate since process start",
		}, func() float64 { return cache.Stats().HitRate() }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Cache hits",
		}, func() float64 { return float64(cache.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Cache misses",
		}, func() float64 { return float64(cache.Stats().Misses) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "evictions_total",
			Help: "Entries removed by TTL expiry or LRU pressure",
		}, func() float64 { return float64(cache.Stats().Evictions) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "invalidations_total",
			Help: "Entries removed by explicit invalidation",
		}, func() float64 { return float64(cache.Stats().Invalidations) }),
	)
	return m
}

// LookupLatency is the histogram the authorizer observes into.
func (m *Metrics) LookupLatency() prometheus.Histogram {
	return m.lookupLatency
}

// RecordTransition counts one committed maturity transition.
func (m *Metrics) RecordTransition(action, toState string) {
	m.transitions.WithLabelValues(action, toState).Inc()
}

// RecordDecision counts one authorization outcome.
func (m *Metrics) RecordDecision(outcome string) {
	m.authorizeTot.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
