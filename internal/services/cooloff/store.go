package cooloff

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/amerfu/llm-fallback/internal/services/providers"
	"go.uber.org/zap"
)

// KV is the durable key-value capability the store is built on. Writes are
// plain overwrites, so concurrent writers need no coordination.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	// List returns every key in the namespace.
	List(ctx context.Context) ([]string, error)
}

// Statuses maps provider -> model -> epoch milliseconds of the last failure.
type Statuses map[providers.ProviderID]map[string]int64

// Store tracks the last failure time of each provider/model pair.
type Store struct {
	kv     KV
	logger *zap.Logger
}

// NewStore creates a cool-off store over kv.
func NewStore(kv KV, logger *zap.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
	}
}

// IsInCooldown reports whether the pair failed less than cooloffSeconds ago.
// Missing records and values that are not finite numbers count as not
// cooling.
func (s *Store) IsInCooldown(ctx context.Context, provider providers.ProviderID, model string, nowMs int64, cooloffSeconds float64) (bool, error) {
	key := EncodeKey(provider, model)
	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read cool-off record %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	ts, ok := parseTimestamp(value)
	if !ok {
		s.logger.Debug("Ignoring unparseable cool-off record",
			zap.String("key", key),
			zap.String("value", value))
		return false, nil
	}

	return float64(nowMs)-ts < cooloffSeconds*1000, nil
}

// RecordFailure overwrites the failure timestamp of the pair.
func (s *Store) RecordFailure(ctx context.Context, provider providers.ProviderID, model string, atMs int64) error {
	key := EncodeKey(provider, model)
	if err := s.kv.Put(ctx, key, strconv.FormatInt(atMs, 10)); err != nil {
		return fmt.Errorf("failed to write cool-off record %s: %w", key, err)
	}
	return nil
}

// ListAll returns every stored record grouped by provider. Malformed keys
// and unparseable values are skipped.
func (s *Store) ListAll(ctx context.Context) (Statuses, error) {
	keys, err := s.kv.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cool-off records: %w", err)
	}

	statuses := make(Statuses)
	for _, key := range keys {
		provider, model, err := ParseKey(key)
		if err != nil {
			s.logger.Debug("Skipping malformed cool-off key", zap.String("key", key), zap.Error(err))
			continue
		}

		value, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read cool-off record %s: %w", key, err)
		}
		if !ok {
			// expired or removed between List and Get
			continue
		}
		ts, ok := parseTimestamp(value)
		if !ok {
			continue
		}

		models, exists := statuses[provider]
		if !exists {
			models = make(map[string]int64)
			statuses[provider] = models
		}
		models[model] = int64(ts)
	}

	return statuses, nil
}

func parseTimestamp(value string) (float64, bool) {
	ts, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return 0, false
	}
	return ts, true
}
