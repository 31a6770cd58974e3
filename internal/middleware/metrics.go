package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// slowRequestThreshold is the duration above which a request is logged as
// slow. A full failover chain can legitimately take a while.
const slowRequestThreshold = 30 * time.Second

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_fallback_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_fallback_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 15),
		},
		[]string{"method", "endpoint", "status"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_fallback_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "endpoint"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "llm_fallback_active_connections",
			Help: "Number of in-flight HTTP requests",
		},
	)

	originRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llm_fallback_origin_rejections_total",
			Help: "Total number of requests rejected by the origin allow-list",
		},
	)
)

// MetricsMiddleware collects Prometheus metrics
func MetricsMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			activeConnections.Inc()
			defer activeConnections.Dec()

			wrapped := NewResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			// chi fills in the pattern while routing, so read it afterwards
			endpoint := routePattern(r)
			duration := time.Since(start)
			status := strconv.Itoa(wrapped.StatusCode())

			httpRequestsTotal.WithLabelValues(r.Method, endpoint, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, endpoint, status).Observe(duration.Seconds())
			httpResponseSize.WithLabelValues(r.Method, endpoint).Observe(float64(wrapped.BytesWritten()))

			if duration > slowRequestThreshold {
				logger.Warn("Slow request detected",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("duration", duration),
					zap.Int("status", wrapped.StatusCode()),
				)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	// unmatched requests would otherwise explode label cardinality
	return "unmatched"
}
