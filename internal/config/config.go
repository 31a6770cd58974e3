package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Fallback  FallbackConfig  `mapstructure:"fallback"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Port             int           `mapstructure:"port"`
	MetricsPort      int           `mapstructure:"metrics_port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdown time.Duration `mapstructure:"graceful_shutdown"`
}

type RedisConfig struct {
	URL       string        `mapstructure:"url"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	PoolSize  int           `mapstructure:"pool_size"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	// RecordTTL expires cool-off records in Redis. Zero keeps them until
	// overwritten. A TTL shorter than a request's cool-off window ends that
	// window early.
	RecordTTL time.Duration `mapstructure:"record_ttl"`
}

// ProviderEndpointConfig holds the connection settings of one upstream
// provider. A provider without both fields set is treated as unconfigured.
type ProviderEndpointConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type ProvidersConfig struct {
	Cerebras   ProviderEndpointConfig `mapstructure:"cerebras"`
	DeepInfra  ProviderEndpointConfig `mapstructure:"deepinfra"`
	OpenRouter ProviderEndpointConfig `mapstructure:"openrouter"`
	Groq       ProviderEndpointConfig `mapstructure:"groq"`
	Fireworks  ProviderEndpointConfig `mapstructure:"fireworks"`
}

// ByName returns the endpoint settings keyed by provider identifier.
func (p ProvidersConfig) ByName() map[string]ProviderEndpointConfig {
	return map[string]ProviderEndpointConfig{
		"cerebras":   p.Cerebras,
		"deepinfra":  p.DeepInfra,
		"openrouter": p.OpenRouter,
		"groq":       p.Groq,
		"fireworks":  p.Fireworks,
	}
}

type FallbackConfig struct {
	CooloffSeconds      float64       `mapstructure:"cooloff_seconds"`
	UpstreamTimeout     time.Duration `mapstructure:"upstream_timeout"`
	MaxAttempts         int           `mapstructure:"max_attempts"`
	SelectorConcurrency int           `mapstructure:"selector_concurrency"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// Load reads configuration from config.yaml (if present) and the
// environment. An empty configPath searches the default locations.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/llm-fallback")
	}

	setDefaults(v)

	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the proxy cannot run with.
func (c *Config) Validate() error {
	if c.Fallback.CooloffSeconds <= 0 {
		return fmt.Errorf("fallback.cooloff_seconds must be positive, got %v", c.Fallback.CooloffSeconds)
	}
	if c.Fallback.UpstreamTimeout <= 0 {
		return fmt.Errorf("fallback.upstream_timeout must be positive, got %s", c.Fallback.UpstreamTimeout)
	}
	if c.Fallback.MaxAttempts < 0 {
		return fmt.Errorf("fallback.max_attempts must not be negative, got %d", c.Fallback.MaxAttempts)
	}
	if ttl := c.Redis.RecordTTL; ttl > 0 && ttl.Seconds() <= c.Fallback.CooloffSeconds {
		return fmt.Errorf("redis.record_ttl must exceed fallback.cooloff_seconds, got %s", ttl)
	}
	if c.Fallback.SelectorConcurrency <= 0 {
		c.Fallback.SelectorConcurrency = 1
	}
	for i, origin := range c.CORS.AllowedOrigins {
		c.CORS.AllowedOrigins[i] = strings.TrimRight(strings.TrimSpace(origin), "/")
	}
	for name, p := range c.Providers.ByName() {
		if p.BaseURL != "" && !strings.HasPrefix(p.BaseURL, "http://") && !strings.HasPrefix(p.BaseURL, "https://") {
			return fmt.Errorf("providers.%s.base_url must be an http(s) URL, got %q", name, p.BaseURL)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 0)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "600s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.graceful_shutdown", "30s")

	// Redis defaults
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.key_prefix", "provider_fallback_status")
	v.SetDefault("redis.record_ttl", "0s")

	// Provider base URLs; API keys have no default
	v.SetDefault("providers.cerebras.base_url", "https://api.cerebras.ai/v1")
	v.SetDefault("providers.deepinfra.base_url", "https://api.deepinfra.com/v1/openai")
	v.SetDefault("providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("providers.groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("providers.fireworks.base_url", "https://api.fireworks.ai/inference/v1")

	// Fallback defaults
	v.SetDefault("fallback.cooloff_seconds", 120)
	v.SetDefault("fallback.upstream_timeout", "60s")
	v.SetDefault("fallback.max_attempts", 0)
	v.SetDefault("fallback.selector_concurrency", 8)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output_path", "")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:4173"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 86400)
}

func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		// Server
		"server.port":          "SERVER_PORT",
		"server.metrics_port":  "METRICS_PORT",
		"server.read_timeout":  "SERVER_READ_TIMEOUT",
		"server.write_timeout": "SERVER_WRITE_TIMEOUT",
		"server.idle_timeout":  "SERVER_IDLE_TIMEOUT",

		// Redis
		"redis.url":        "REDIS_URL",
		"redis.password":   "REDIS_PASSWORD",
		"redis.db":         "REDIS_DB",
		"redis.key_prefix": "REDIS_KEY_PREFIX",
		"redis.record_ttl": "REDIS_RECORD_TTL",

		// Providers
		"providers.cerebras.base_url":   "CEREBRAS_BASE_URL",
		"providers.cerebras.api_key":    "CEREBRAS_API_KEY",
		"providers.deepinfra.base_url":  "DEEPINFRA_BASE_URL",
		"providers.deepinfra.api_key":   "DEEPINFRA_API_KEY",
		"providers.openrouter.base_url": "OPENROUTER_BASE_URL",
		"providers.openrouter.api_key":  "OPENROUTER_API_KEY",
		"providers.groq.base_url":       "GROQ_BASE_URL",
		"providers.groq.api_key":        "GROQ_API_KEY",
		"providers.fireworks.base_url":  "FIREWORKS_BASE_URL",
		"providers.fireworks.api_key":   "FIREWORKS_API_KEY",

		// Fallback
		"fallback.cooloff_seconds":      "COOLOFF_SECONDS",
		"fallback.upstream_timeout":     "UPSTREAM_TIMEOUT",
		"fallback.max_attempts":         "MAX_ATTEMPTS",
		"fallback.selector_concurrency": "SELECTOR_CONCURRENCY",

		// Logging
		"logging.level":  "LOG_LEVEL",
		"logging.format": "LOG_FORMAT",

		// CORS
		"cors.allowed_origins": "CORS_ALLOWED_ORIGINS",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}
