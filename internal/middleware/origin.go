package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// OriginAllowList rejects requests whose Origin header is not in allowed
// with 403. Requests without an Origin header, such as server to server
// calls, pass through. A "*" entry allows every origin. Entries are matched
// exactly; config.Validate normalises them so go-chi/cors sees the same list.
func OriginAllowList(allowed []string, logger *zap.Logger) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || wildcard {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := set[origin]; ok {
				next.ServeHTTP(w, r)
				return
			}

			originRejections.Inc()
			logger.Warn("Rejected request from disallowed origin",
				zap.String("origin", origin),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Origin not allowed"})
		})
	}
}
