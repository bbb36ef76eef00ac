// Package metrics exposes Prometheus collectors for HTTP traffic and domain events.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "youowe"

// Join results recorded by GroupJoin.
const (
	JoinSuccess        = "success"
	JoinClosed         = "closed"
	JoinWrongPassword  = "wrong_password"
	JoinAlreadyMember  = "already_member"
	JoinNotFound       = "not_found"
	JoinInvalid        = "invalid"
	JoinInternalFailed = "error"
)

// Metrics holds the application collectors and the registry they live in.
// All recording methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	groupsCreated       prometheus.Counter
	membersCreated      prometheus.Counter
	groupJoins          *prometheus.CounterVec
	ordersCreated       prometheus.Counter
	realtimeSubscribers prometheus.Gauge
}

// New creates and registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),

		groupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_created_total",
			Help:      "Total number of groups created.",
		}),
		membersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "members_created_total",
			Help:      "Total number of members created.",
		}),
		groupJoins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_joins_total",
			Help:      "Group join attempts by result.",
		}, []string{"result"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders created.",
		}),
		realtimeSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscribers",
			Help:      "Current number of connected realtime subscribers.",
		}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.groupsCreated,
		m.membersCreated,
		m.groupJoins,
		m.ordersCreated,
		m.realtimeSubscribers,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument wraps next with HTTP metrics collection. Routes are labeled by
// their chi pattern so ids do not explode label cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)

		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) GroupCreated() {
	if m != nil {
		m.groupsCreated.Inc()
	}
}

func (m *Metrics) MemberCreated() {
	if m != nil {
		m.membersCreated.Inc()
	}
}

// GroupJoin records a join attempt with one of the Join* results.
func (m *Metrics) GroupJoin(result string) {
	if m != nil {
		m.groupJoins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) OrderCreated() {
	if m != nil {
		m.ordersCreated.Inc()
	}
}

// RealtimeSubscribers returns the subscriber gauge, or nil on a nil *Metrics.
func (m *Metrics) RealtimeSubscribers() prometheus.Gauge {
	if m == nil {
		return nil
	}
	return m.realtimeSubscribers
}
