package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, float64(120), cfg.Fallback.CooloffSeconds)
	assert.Equal(t, 60*time.Second, cfg.Fallback.UpstreamTimeout)
	assert.Equal(t, 0, cfg.Fallback.MaxAttempts)
	assert.Equal(t, "provider_fallback_status", cfg.Redis.KeyPrefix)
	assert.Zero(t, cfg.Redis.RecordTTL, "cool-off records must not expire by default")
	assert.Equal(t, "https://api.cerebras.ai/v1", cfg.Providers.Cerebras.BaseURL)
	assert.Empty(t, cfg.Providers.Cerebras.APIKey, "API keys must not have defaults")
	assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:5173")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("COOLOFF_SECONDS", "300")
	t.Setenv("UPSTREAM_TIMEOUT", "15s")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("GROQ_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example/")
	t.Setenv("REDIS_RECORD_TTL", "48h")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, float64(300), cfg.Fallback.CooloffSeconds)
	assert.Equal(t, 15*time.Second, cfg.Fallback.UpstreamTimeout)
	assert.Equal(t, "gsk-test", cfg.Providers.Groq.APIKey)
	assert.Equal(t, "http://localhost:9999/v1", cfg.Providers.Groq.BaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 48*time.Hour, cfg.Redis.RecordTTL)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
providers:
  fireworks:
    base_url: https://fw.example/v1
    api_key: fw-key
fallback:
  cooloff_seconds: 45
  max_attempts: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://fw.example/v1", cfg.Providers.Fireworks.BaseURL)
	assert.Equal(t, "fw-key", cfg.Providers.Fireworks.APIKey)
	assert.Equal(t, float64(45), cfg.Fallback.CooloffSeconds)
	assert.Equal(t, 3, cfg.Fallback.MaxAttempts)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Fallback: FallbackConfig{
				CooloffSeconds:      120,
				UpstreamTimeout:     time.Minute,
				SelectorConcurrency: 4,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero cooloff", mutate: func(c *Config) { c.Fallback.CooloffSeconds = 0 }, wantErr: "cooloff_seconds"},
		{name: "zero timeout", mutate: func(c *Config) { c.Fallback.UpstreamTimeout = 0 }, wantErr: "upstream_timeout"},
		{name: "negative attempts", mutate: func(c *Config) { c.Fallback.MaxAttempts = -1 }, wantErr: "max_attempts"},
		{
			name:    "record ttl within cooloff window",
			mutate:  func(c *Config) { c.Redis.RecordTTL = 2 * time.Minute },
			wantErr: "redis.record_ttl",
		},
		{name: "record ttl above cooloff window", mutate: func(c *Config) { c.Redis.RecordTTL = time.Hour }},
		{
			name:    "bad base url",
			mutate:  func(c *Config) { c.Providers.Groq.BaseURL = "api.groq.com" },
			wantErr: "providers.groq.base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_NormalisesOrigins(t *testing.T) {
	c := &Config{
		Fallback: FallbackConfig{CooloffSeconds: 120, UpstreamTimeout: time.Minute},
		CORS:     CORSConfig{AllowedOrigins: []string{"https://app.example/", " http://localhost:5173 ", "*"}},
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"https://app.example", "http://localhost:5173", "*"}, c.CORS.AllowedOrigins)
}

func TestProvidersConfig_ByName(t *testing.T) {
	p := ProvidersConfig{OpenRouter: ProviderEndpointConfig{BaseURL: "https://or", APIKey: "k"}}
	byName := p.ByName()

	assert.Len(t, byName, 5)
	assert.Equal(t, "k", byName["openrouter"].APIKey)
	assert.Empty(t, byName["cerebras"].APIKey)
}
