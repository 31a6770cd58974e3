package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// quietPaths are probe and scrape endpoints that are never logged.
var quietPaths = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

// Logger writes one line per proxied request. 5xx responses, which include
// exhausted failover, log at warn.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, quiet := quietPaths[r.URL.Path]; quiet {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := NewResponseWriter(w)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("origin", r.Header.Get("Origin")),
				zap.Int("status", ww.StatusCode()),
				zap.Int64("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if ww.StatusCode() >= http.StatusInternalServerError {
				logger.Warn("fallback request failed", fields...)
				return
			}
			logger.Info("fallback request", fields...)
		})
	}
}
