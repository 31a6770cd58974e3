package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(timeout time.Duration) *Client {
	return NewClient(timeout, zap.NewNop())
}

func TestClient_ChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "m1", got["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-test",
			"object": "chat.completion",
			"model": "m1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	ep := Endpoint{Provider: Groq, BaseURL: server.URL + "/v1", APIKey: "test-key"}
	resp, err := newTestClient(5*time.Second).ChatCompletion(context.Background(), ep, "m1", Params{"model": json.RawMessage(`"m1"`)})
	require.NoError(t, err)

	id, ok := resp.StringField("id")
	assert.True(t, ok)
	assert.Equal(t, "chatcmpl-test", id)
}

func TestClient_ChatCompletion_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "openai style error",
			status:     http.StatusTooManyRequests,
			body:       `{"error": {"message": "rate limited", "type": "rate_limit"}}`,
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "rate limited",
		},
		{
			name:       "plain text error",
			status:     http.StatusInternalServerError,
			body:       "boom",
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "boom",
		},
		{
			name:    "invalid json on success",
			status:  http.StatusOK,
			body:    "<html>",
			wantMsg: "failed to parse response",
		},
		{
			name:    "json array on success",
			status:  http.StatusOK,
			body:    "[1,2]",
			wantMsg: "failed to parse response",
		},
		{
			name:    "json null on success",
			status:  http.StatusOK,
			body:    "null",
			wantMsg: "expected a JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			ep := Endpoint{Provider: Cerebras, BaseURL: server.URL, APIKey: "k"}
			_, err := newTestClient(5*time.Second).ChatCompletion(context.Background(), ep, "m1", Params{})
			require.Error(t, err)

			var upstreamErr *UpstreamError
			require.True(t, errors.As(err, &upstreamErr))
			assert.Equal(t, Cerebras, upstreamErr.Provider)
			assert.Equal(t, "m1", upstreamErr.Model)
			assert.Equal(t, tt.wantStatus, upstreamErr.StatusCode)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Contains(t, err.Error(), "provider cerebras model m1")
		})
	}
}

func TestClient_ChatCompletion_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	ep := Endpoint{Provider: Groq, BaseURL: url, APIKey: "k"}
	_, err := newTestClient(time.Second).ChatCompletion(context.Background(), ep, "m1", Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to make request")
}

func TestClient_ChatCompletion_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ep := Endpoint{Provider: Groq, BaseURL: server.URL, APIKey: "k"}
	start := time.Now()
	_, err := newTestClient(50*time.Millisecond).ChatCompletion(context.Background(), ep, "m1", Params{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_ChatCompletion_CallerCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	ep := Endpoint{Provider: Groq, BaseURL: server.URL, APIKey: "k"}
	_, err := newTestClient(10*time.Second).ChatCompletion(ctx, ep, "m1", Params{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
