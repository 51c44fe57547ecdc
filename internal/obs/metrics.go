// Package obs holds the gateway's observability surface: a dedicated
// Prometheus registry plus the health endpoint.
package obs

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for the gateway and the query layer.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	CacheHitsTotal    *prometheus.CounterVec
	CacheMissesTotal  *prometheus.CounterVec
	BackendErrors     *prometheus.CounterVec
}

// NewMetrics constructs and registers all collectors on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipcompare_http_requests_total",
			Help: "Gateway HTTP requests by route and status.",
		},
		[]string{"route", "status"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shipcompare_request_duration_seconds",
			Help:    "Gateway request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	cacheHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipcompare_cache_hits_total",
			Help: "Query cache hits by resource.",
		},
		[]string{"resource"},
	)
	cacheMisses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipcompare_cache_misses_total",
			Help: "Query cache misses by resource.",
		},
		[]string{"resource"},
	)
	backendErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipcompare_backend_errors_total",
			Help: "Backend request failures by error category.",
		},
		[]string{"category"},
	)

	registry.MustRegister(httpRequests, requestDuration, cacheHits, cacheMisses, backendErrors)

	return &Metrics{
		Registry:          registry,
		HTTPRequestsTotal: httpRequests,
		RequestDuration:   requestDuration,
		CacheHitsTotal:    cacheHits,
		CacheMissesTotal:  cacheMisses,
		BackendErrors:     backendErrors,
	}
}

// ObserveRequest records one handled gateway request.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.Observe(d.Seconds())
}

// IncCache records a query-cache lookup outcome for a resource.
func (m *Metrics) IncCache(resource string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(resource).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(resource).Inc()
}

// IncBackendError records a failed backend request by category.
func (m *Metrics) IncBackendError(category string) {
	if m == nil {
		return
	}
	m.BackendErrors.WithLabelValues(category).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// HealthHandler returns a handler for /healthz requests.
func HealthHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health response", "error", err)
		}
	}
}
