package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxResponseSize bounds how much of an upstream body is read.
const maxResponseSize = 32 << 20

// Client issues single chat completion calls against OpenAI-compatible
// providers. It never retries; failover is the dispatcher's job.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient creates a client whose calls are each bounded by timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     logger,
	}
}

// ChatCompletion posts payload to the endpoint and returns the decoded JSON
// object on a 2xx response. Any other outcome is an *UpstreamError.
func (c *Client) ChatCompletion(ctx context.Context, ep Endpoint, model string, payload Params) (Params, error) {
	fail := func(status int, msg string, err error) error {
		return &UpstreamError{Provider: ep.Provider, Model: model, StatusCode: status, Message: msg, Err: err}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fail(0, "", fmt.Errorf("failed to marshal request: %w", err))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.ChatCompletionsURL(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fail(0, "", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+ep.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, "", fmt.Errorf("failed to make request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fail(0, "", fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug("Upstream responded",
		zap.String("provider", ep.Provider.String()),
		zap.String("model", model),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, errorMessage(body), nil)
	}

	var out Params
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fail(0, "", fmt.Errorf("failed to parse response: %w", err))
	}
	if out == nil {
		return nil, fail(0, "", fmt.Errorf("failed to parse response: expected a JSON object"))
	}

	return out, nil
}
