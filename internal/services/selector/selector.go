package selector

import (
	"context"

	"github.com/amerfu/llm-fallback/internal/services/providers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Resolver maps a provider to its endpoint.
type Resolver interface {
	Resolve(id providers.ProviderID) (providers.Endpoint, error)
}

// CooldownChecker reports whether a provider/model pair is cooling off.
type CooldownChecker interface {
	IsInCooldown(ctx context.Context, provider providers.ProviderID, model string, nowMs int64, cooloffSeconds float64) (bool, error)
}

// Selector filters a ranked candidate list down to the viable entries.
type Selector struct {
	resolver    Resolver
	cooldowns   CooldownChecker
	logger      *zap.Logger
	concurrency int
}

// New creates a selector. concurrency bounds the number of cool-off reads in
// flight for a single request; values below 1 mean unbounded.
func New(resolver Resolver, cooldowns CooldownChecker, logger *zap.Logger, concurrency int) *Selector {
	return &Selector{
		resolver:    resolver,
		cooldowns:   cooldowns,
		logger:      logger,
		concurrency: concurrency,
	}
}

// SelectViable returns the entries whose provider is configured and whose
// pair is not in cool-off, in input order. Entries are evaluated
// concurrently. An empty result is not an error.
func (s *Selector) SelectViable(ctx context.Context, configs []providers.LLMQueryConfig, nowMs int64, cooloffSeconds float64) []providers.LLMQueryConfig {
	viable := make([]bool, len(configs))

	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}

	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			viable[i] = s.isViable(ctx, cfg, nowMs, cooloffSeconds)
			return nil
		})
	}
	// isViable never returns an error, exclusions are expressed in viable
	_ = g.Wait()

	out := make([]providers.LLMQueryConfig, 0, len(configs))
	for i, cfg := range configs {
		if viable[i] {
			out = append(out, cfg)
		}
	}
	return out
}

func (s *Selector) isViable(ctx context.Context, cfg providers.LLMQueryConfig, nowMs int64, cooloffSeconds float64) bool {
	ep, err := s.resolver.Resolve(cfg.Provider)
	if err != nil {
		s.logger.Debug("Excluding candidate with unknown provider",
			zap.String("provider", cfg.Provider.String()),
			zap.String("model", cfg.Model),
			zap.Error(err))
		return false
	}
	if !ep.Usable() {
		s.logger.Debug("Excluding candidate with unconfigured provider",
			zap.String("provider", cfg.Provider.String()),
			zap.String("model", cfg.Model))
		return false
	}

	cooling, err := s.cooldowns.IsInCooldown(ctx, cfg.Provider, cfg.Model, nowMs, cooloffSeconds)
	if err != nil {
		// Fail open: a store outage must not take every provider offline.
		s.logger.Warn("Cool-off lookup failed, treating candidate as viable",
			zap.String("provider", cfg.Provider.String()),
			zap.String("model", cfg.Model),
			zap.Error(err))
		return true
	}
	if cooling {
		s.logger.Debug("Excluding candidate in cool-off",
			zap.String("provider", cfg.Provider.String()),
			zap.String("model", cfg.Model))
		return false
	}
	return true
}
