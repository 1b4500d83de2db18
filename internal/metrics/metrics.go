// Package metrics provides Prometheus instrumentation for the water-quality backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nextgen"

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// MeasurementsTotal counts stored measurements by computed risk level
	MeasurementsTotal *prometheus.CounterVec
	// IngestRejectedTotal counts refused measurement submissions by error kind
	IngestRejectedTotal *prometheus.CounterVec

	SignupsTotal     prometheus.Counter
	ActivationsTotal prometheus.Counter
	AccountsPurged   prometheus.Counter
	LiveSubscribers  prometheus.Gauge
	// RateLimitedTotal counts refused requests by limiter (window, ip, login)
	RateLimitedTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status code.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		MeasurementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_total",
			Help:      "Stored device measurements by risk level.",
		}, []string{"risk"}),
		IngestRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_rejected_total",
			Help:      "Rejected measurement submissions by error type.",
		}, []string{"type"}),
		SignupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "signups_total",
			Help: "Signups awaiting email verification.",
		}),
		ActivationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "activations_total",
			Help: "Accounts created through email verification.",
		}),
		AccountsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "accounts_purged_total",
			Help: "Deactivated accounts deleted after the retention window.",
		}),
		LiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "live_subscribers",
			Help: "Connected live measurement websocket clients.",
		}),
		RateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rate_limited_total",
			Help: "Requests refused by a rate limiter.",
		}, []string{"limiter"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.MeasurementsTotal,
		m.IngestRejectedTotal,
		m.SignupsTotal,
		m.ActivationsTotal,
		m.AccountsPurged,
		m.LiveSubscribers,
		m.RateLimitedTotal,
	)
	return m
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by chi route pattern,
// so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
