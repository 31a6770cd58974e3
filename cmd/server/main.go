package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amerfu/llm-fallback/internal/config"
	"github.com/amerfu/llm-fallback/internal/handlers"
	"github.com/amerfu/llm-fallback/internal/logger"
	"github.com/amerfu/llm-fallback/internal/router"
	"github.com/amerfu/llm-fallback/internal/services/cooloff"
	redisStore "github.com/amerfu/llm-fallback/internal/services/data/redis"
	"github.com/amerfu/llm-fallback/internal/services/dispatch"
	"github.com/amerfu/llm-fallback/internal/services/providers"
	"github.com/amerfu/llm-fallback/internal/services/selector"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// statusKV is a cool-off backend that can also be probed for readiness.
type statusKV interface {
	cooloff.KV
	handlers.Pinger
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Initialize(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	kv, closeKV := openStatusKV(cfg, log)
	defer closeKV()

	store := cooloff.NewStore(kv, log)
	resolver := providers.NewResolver(cfg.Providers)

	configured := resolver.Configured()
	if len(configured) == 0 {
		log.Warn("No provider has both a base URL and an API key, every query will return 503")
	} else {
		names := make([]string, 0, len(configured))
		for _, id := range configured {
			names = append(names, id.String())
		}
		log.Info("Providers configured", zap.Strings("providers", names))
	}

	dispatcher := dispatch.New(&dispatch.Config{
		Selector:    selector.New(resolver, store, log, cfg.Fallback.SelectorConcurrency),
		Resolver:    resolver,
		Store:       store,
		Caller:      providers.NewClient(cfg.Fallback.UpstreamTimeout, log),
		Logger:      log,
		MaxAttempts: cfg.Fallback.MaxAttempts,
	})

	mainRouter := router.NewRouter(cfg, log, &router.Dependencies{
		Fallback: handlers.NewFallbackHandler(log, dispatcher, store, cfg.Fallback.CooloffSeconds),
		Store:    kv,
	})

	servers := []*http.Server{{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mainRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}}
	if cfg.Server.MetricsPort != 0 {
		servers = append(servers, &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			Handler:      router.NewMetricsRouter(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		})
	}

	for i, srv := range servers {
		go func(s *http.Server, idx int) {
			serverType := "Main API"
			if idx == 1 {
				serverType = "Metrics"
			}
			log.Info(fmt.Sprintf("%s server starting", serverType), zap.String("address", s.Addr))

			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal(fmt.Sprintf("%s server failed to start", serverType), zap.Error(err))
			}
		}(srv, i)
	}

	log.Info("llm-fallback started",
		zap.Int("api_port", cfg.Server.Port),
		zap.Int("metrics_port", cfg.Server.MetricsPort),
		zap.Float64("cooloff_seconds", cfg.Fallback.CooloffSeconds),
		zap.Duration("upstream_timeout", cfg.Fallback.UpstreamTimeout),
		zap.Int("max_attempts", cfg.Fallback.MaxAttempts))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
	}

	log.Info("Servers shutdown complete")
}

// openStatusKV connects to Redis when a URL is configured. Without one the
// proxy runs in lite mode on process memory.
func openStatusKV(cfg *config.Config, log *zap.Logger) (statusKV, func()) {
	if cfg.Redis.URL == "" {
		log.Warn("Running in LITE MODE: REDIS_URL is not set, cool-off state is kept in memory and not shared between instances")
		return cooloff.NewMemoryKV(), func() {}
	}

	client, err := redisStore.NewClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		log.Fatal("Failed to parse Redis URL", zap.Error(err))
	}

	kv := redisStore.NewStatusStore(&redisStore.StatusStoreConfig{
		Client:    client,
		Logger:    log,
		KeyPrefix: cfg.Redis.KeyPrefix,
		TTL:       cfg.Redis.RecordTTL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := kv.Ping(ctx); err != nil {
		// the selector fails open, so keep serving while Redis recovers
		log.Error("Redis is not reachable at startup", zap.String("url", maskConnectionString(cfg.Redis.URL)), zap.Error(err))
	} else {
		log.Info("Cool-off state stored in Redis", zap.String("url", maskConnectionString(cfg.Redis.URL)))
	}

	return kv, func() {
		if err := client.Close(); err != nil {
			log.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
}

// maskConnectionString masks sensitive parts of connection strings
func maskConnectionString(conn string) string {
	if len(conn) > 20 {
		return conn[:10] + "****" + conn[len(conn)-10:]
	}
	return "****"
}
