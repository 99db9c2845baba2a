package api

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

var latencyBuckets = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5}

// Metrics records HTTP and recommendation metrics on a private registry
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	recommendations *prometheus.CounterVec
	topScore        prometheus.Histogram
	doctors         prometheus.Gauge
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "doctor_finder_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "doctor_finder_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: latencyBuckets,
		}, []string{"method", "route"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "doctor_finder_recommendations_total",
			Help: "Recommendation requests by outcome",
		}, []string{"outcome"}),
		topScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "doctor_finder_top_match_score",
			Help:    "Cosine similarity of the best match per recommendation",
			Buckets: prometheus.LinearBuckets(-1, 0.2, 11),
		}),
		doctors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "doctor_finder_roster_doctors",
			Help: "Number of doctors in the loaded roster",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.recommendations,
		m.topScore,
		m.doctors,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetDoctors records the roster size
func (m *Metrics) SetDoctors(n int) {
	if m == nil {
		return
	}
	m.doctors.Set(float64(n))
}

// ObserveRecommendation records one recommendation outcome and, on success, the best score
func (m *Metrics) ObserveRecommendation(outcome string, topScore float64, hasResults bool) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(outcome).Inc()
	if hasResults {
		m.topScore.Observe(topScore)
	}
}

// Middleware records request count and duration labelled by chi route pattern.
// Mount it with Use on the router so the pattern is resolved when it runs.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

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
