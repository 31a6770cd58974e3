package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLines int
		wantLevel zapcore.Level
	}{
		{name: "query", path: "/", status: http.StatusOK, wantLines: 1, wantLevel: zapcore.InfoLevel},
		{name: "validation error", path: "/", status: http.StatusBadRequest, wantLines: 1, wantLevel: zapcore.InfoLevel},
		{name: "exhausted", path: "/", status: http.StatusServiceUnavailable, wantLines: 1, wantLevel: zapcore.WarnLevel},
		{name: "health", path: "/health", status: http.StatusOK},
		{name: "ready", path: "/ready", status: http.StatusServiceUnavailable},
		{name: "metrics", path: "/metrics", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			h := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("{}"))
			}))

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			req.Header.Set("Origin", "http://localhost:5173")
			h.ServeHTTP(httptest.NewRecorder(), req)

			require.Equal(t, tt.wantLines, logs.Len())
			if tt.wantLines == 0 {
				return
			}
			entry := logs.All()[0]
			assert.Equal(t, tt.wantLevel, entry.Level)
			fields := entry.ContextMap()
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, int64(2), fields["bytes"])
			assert.Equal(t, "http://localhost:5173", fields["origin"])
		})
	}
}
