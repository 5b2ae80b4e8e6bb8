package apitest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Metrics counts requests served by the fake API.
type Metrics struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates request metrics on a private registry, so the Go
// runtime collectors stay out of the output.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)
	return &Metrics{
		registry: registry,
		httpRequests: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "showroom",
				Subsystem: "devserver",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by endpoint and method",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		requestDuration: auto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "showroom",
				Subsystem: "devserver",
				Name:      "http_request_duration_milliseconds",
				Help:      "HTTP request duration in milliseconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint", "method", "status_code"},
		),
	}
}

// Middleware records one observation per request, labeled by route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		status := strconv.Itoa(sw.status)
		m.httpRequests.WithLabelValues(endpoint, r.Method, status).Inc()
		m.requestDuration.WithLabelValues(endpoint, r.Method, status).
			Observe(float64(time.Since(start).Microseconds()) / 1000)
	})
}

// Handler serves the Prometheus text exposition.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CORSHandler lets browser front ends on origins call h.
// An empty origin list allows any origin.
func CORSHandler(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         600,
	}).Handler(h)
}
