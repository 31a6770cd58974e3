package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger checks the cool-off backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status   string                   `json:"status"`
	Services map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health is the liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// Ready reports whether the cool-off store is reachable.
func Ready(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:   "ready",
			Services: map[string]ServiceHealth{"cooloff_store": {Status: "healthy"}},
		}
		status := http.StatusOK
		if err := store.Ping(ctx); err != nil {
			response.Status = "not_ready"
			response.Services["cooloff_store"] = ServiceHealth{Status: "unhealthy", Message: err.Error()}
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}
}
