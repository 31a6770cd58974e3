package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/amerfu/llm-fallback/internal/services/cooloff"
	"github.com/amerfu/llm-fallback/internal/services/dispatch"
	"go.uber.org/zap"
)

// Dispatcher runs a validated query against the candidate providers.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

// StatusLister enumerates the stored cool-off records.
type StatusLister interface {
	ListAll(ctx context.Context) (cooloff.Statuses, error)
}

// StatusResponse is the GET body.
type StatusResponse struct {
	Statuses       cooloff.Statuses `json:"statuses"`
	CooloffSeconds float64          `json:"cooloffSeconds"`
}

// FallbackHandler serves the proxy surface: GET reports cool-off state and
// POST dispatches a query.
type FallbackHandler struct {
	baseHandler
	dispatcher     Dispatcher
	statuses       StatusLister
	defaultCooloff float64
}

func NewFallbackHandler(logger *zap.Logger, dispatcher Dispatcher, statuses StatusLister, defaultCooloff float64) *FallbackHandler {
	return &FallbackHandler{
		baseHandler:    baseHandler{logger: logger},
		dispatcher:     dispatcher,
		statuses:       statuses,
		defaultCooloff: defaultCooloff,
	}
}

func (h *FallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.Status(w, r)
	case http.MethodPost:
		h.Query(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	default:
		h.sendError(w, http.StatusBadRequest, msgMethod)
	}
}

// Status reports every stored failure timestamp with the effective cool-off
// window.
func (h *FallbackHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statuses.ListAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list cool-off records", zap.Error(err))
		h.sendError(w, http.StatusServiceUnavailable, "failed to read cool-off state")
		return
	}

	h.sendJSON(w, http.StatusOK, StatusResponse{
		Statuses:       statuses,
		CooloffSeconds: cooloffOverride(r, h.defaultCooloff),
	})
}

// Query validates the body and returns the first successful upstream
// response.
func (h *FallbackHandler) Query(w http.ResponseWriter, r *http.Request) {
	req, reqErr := parseQueryRequest(w, r, h.defaultCooloff)
	if reqErr != nil {
		h.logger.Debug("Rejected query request", zap.String("reason", reqErr.Message))
		h.sendError(w, reqErr.Status, reqErr.Message)
		return
	}

	res, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrNoCandidates):
			h.logger.Debug("No viable candidates for query", zap.Int("configs", len(req.Configs)))
		case r.Context().Err() != nil:
			h.logger.Debug("Client went away before a response was ready", zap.Error(err))
		}
		h.sendError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	h.logger.Info("Query served",
		zap.String("provider", res.Provider.String()),
		zap.String("model", res.Model),
		zap.Int("attempts", res.Attempts))
	h.sendJSON(w, http.StatusOK, res.Body)
}
