package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	plansBuilt      *prometheus.CounterVec
	planDuration    prometheus.Histogram
	narrations      *prometheus.CounterVec
	weatherRequests *prometheus.CounterVec
}

// New creates collectors on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		plansBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trip_planner",
			Name:      "plans_total",
			Help:      "Itinerary requests by outcome.",
		}, []string{"outcome"}),
		planDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trip_planner",
			Name:      "plan_duration_seconds",
			Help:      "End-to-end itinerary planning latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		narrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trip_planner",
			Name:      "narrations_total",
			Help:      "Itinerary descriptions by the narrator that produced them.",
		}, []string{"source"}),
		weatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trip_planner",
			Name:      "weather_requests_total",
			Help:      "Weather forecast lookups by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.plansBuilt,
		m.planDuration,
		m.narrations,
		m.weatherRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePlan records one planning attempt
func (m *Metrics) ObservePlan(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.plansBuilt.WithLabelValues(outcome).Inc()
	m.planDuration.Observe(took.Seconds())
}

// ObserveNarration records which narrator produced a description
func (m *Metrics) ObserveNarration(source string) {
	if m == nil {
		return
	}
	m.narrations.WithLabelValues(source).Inc()
}

// ObserveWeather records one forecast lookup
func (m *Metrics) ObserveWeather(outcome string) {
	if m == nil {
		return
	}
	m.weatherRequests.WithLabelValues(outcome).Inc()
}
