package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"

	"github.com/amerfu/llm-fallback/internal/services/dispatch"
	"github.com/amerfu/llm-fallback/internal/services/providers"
)

// maxBodySize bounds the query request body.
const maxBodySize = 10 << 20

// Client-facing validation messages.
const (
	msgMethod         = "Request method must be GET or POST"
	msgContentType    = "Request content-type must be application/json"
	msgInvalidJSON    = "Request body must be valid JSON"
	msgMissingParams  = "Request body must include params"
	msgMissingConfigs = "Request body must include llmConfigs"
	msgInvalidParams  = "Invalid params: must be a JSON object"
	msgTooLarge       = "Request body too large"
)

// RequestError is a client error surfaced verbatim with its status code.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func badRequest(msg string) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: msg}
}

// parseQueryRequest validates a POST body and turns it into a dispatch
// request. The cool-off window falls back to defaultCooloff unless the body
// carries a positive cooloffSeconds.
func parseQueryRequest(w http.ResponseWriter, r *http.Request, defaultCooloff float64) (dispatch.Request, *RequestError) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return dispatch.Request{}, badRequest(msgContentType)
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return dispatch.Request{}, &RequestError{Status: http.StatusRequestEntityTooLarge, Message: msgTooLarge}
		}
		return dispatch.Request{}, badRequest(msgInvalidJSON)
	}
	if !json.Valid(raw) {
		return dispatch.Request{}, badRequest(msgInvalidJSON)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		// valid JSON that is not an object carries no params
		return dispatch.Request{}, badRequest(msgMissingParams)
	}

	rawParams, ok := body["params"]
	if !ok || isNull(rawParams) {
		return dispatch.Request{}, badRequest(msgMissingParams)
	}
	rawConfigs, ok := body["llmConfigs"]
	if !ok || isNull(rawConfigs) {
		return dispatch.Request{}, badRequest(msgMissingConfigs)
	}

	var params providers.Params
	if err := json.Unmarshal(rawParams, &params); err != nil || params == nil {
		return dispatch.Request{}, badRequest(msgInvalidParams)
	}

	configs, err := parseLLMConfigs(rawConfigs)
	if err != nil {
		return dispatch.Request{}, badRequest("Invalid llmConfigs: " + err.Error())
	}

	cooloff := defaultCooloff
	if rawCooloff, ok := body["cooloffSeconds"]; ok {
		var v float64
		if err := json.Unmarshal(rawCooloff, &v); err == nil && validCooloff(v) {
			cooloff = v
		}
	}

	return dispatch.Request{
		Params:         params,
		Configs:        configs,
		CooloffSeconds: cooloff,
	}, nil
}

func parseLLMConfigs(raw json.RawMessage) ([]providers.LLMQueryConfig, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.New("must be an array")
	}

	configs := make([]providers.LLMQueryConfig, 0, len(entries))
	for i, entry := range entries {
		var cfg providers.LLMQueryConfig
		if err := json.Unmarshal(entry, &cfg); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// cooloffOverride reads the optional ?cooloffSeconds= status parameter.
func cooloffOverride(r *http.Request, defaultCooloff float64) float64 {
	s := r.URL.Query().Get("cooloffSeconds")
	if s == "" {
		return defaultCooloff
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !validCooloff(v) {
		return defaultCooloff
	}
	return v
}

func validCooloff(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
