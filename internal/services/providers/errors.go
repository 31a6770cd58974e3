package providers

import (
	"encoding/json"
	"fmt"
)

// maxErrorBodyLen caps how much of an upstream error body is kept.
const maxErrorBodyLen = 512

// APIError is the OpenAI-compatible error payload most providers return.
type APIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// UpstreamError describes a failed attempt against one provider/model pair.
// Either StatusCode is set (non-2xx response) or Err is set (transport or
// decoding failure).
type UpstreamError struct {
	Provider   ProviderID
	Model      string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		if e.Message == "" {
			return fmt.Sprintf("provider %s model %s: upstream returned status %d", e.Provider, e.Model, e.StatusCode)
		}
		return fmt.Sprintf("provider %s model %s: upstream returned status %d: %s", e.Provider, e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s model %s: %v", e.Provider, e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// errorMessage extracts a human readable message from an upstream error body.
func errorMessage(body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	if len(body) > maxErrorBodyLen {
		return string(body[:maxErrorBodyLen]) + "..."
	}
	return string(body)
}
