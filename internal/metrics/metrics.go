package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	authzFailures   *prometheus.CounterVec
	planLimitHits   *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
}

// New creates the collectors on a fresh registry
func New(service string) *Metrics {
	labels := prometheus.Labels{"service": service}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"method", "route"}),
		authzFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "authorization_failures_total",
			Help:        "Requests refused by authentication, tenant or role checks",
			ConstLabels: labels,
		}, []string{"reason"}),
		planLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "plan_limit_rejections_total",
			Help:        "Note creations refused by the plan limit",
			ConstLabels: labels,
		}, []string{"plan"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "events_published_total",
			Help:        "Domain events handed to the publisher",
			ConstLabels: labels,
		}, []string{"type", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.authzFailures,
		m.planLimitHits,
		m.eventsPublished,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations by route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// AuthorizationFailed counts a refused request
func (m *Metrics) AuthorizationFailed(reason string) {
	m.authzFailures.WithLabelValues(reason).Inc()
}

// PlanLimitReached counts a refused note creation
func (m *Metrics) PlanLimitReached(plan string) {
	m.planLimitHits.WithLabelValues(plan).Inc()
}

// EventPublished counts a publish attempt
func (m *Metrics) EventPublished(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(eventType, result).Inc()
}
