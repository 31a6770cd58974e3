package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanBatchSize = 200

// StatusStore is a Redis-backed key-value namespace for provider fallback
// state. Every key is stored under "<prefix>:".
type StatusStore struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration
}

// StatusStoreConfig configures a StatusStore. A zero TTL keeps records
// forever.
type StatusStoreConfig struct {
	Client    *redis.Client
	Logger    *zap.Logger
	KeyPrefix string
	TTL       time.Duration
}

// NewStatusStore creates a new StatusStore.
func NewStatusStore(cfg *StatusStoreConfig) *StatusStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "provider_fallback_status"
	}
	return &StatusStore{
		client: cfg.Client,
		logger: cfg.Logger,
		prefix: prefix + ":",
		ttl:    cfg.TTL,
	}
}

// NewClient builds a go-redis client from a redis:// URL, applying explicit
// password and DB overrides when set.
func NewClient(url, password string, db, poolSize int) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if password != "" {
		opt.Password = password
	}
	if db != 0 {
		opt.DB = db
	}
	if poolSize > 0 {
		opt.PoolSize = poolSize
	}
	return redis.NewClient(opt), nil
}

// Get returns the value stored under key.
func (s *StatusStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Put overwrites the value stored under key.
func (s *StatusStore) Put(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to store fallback status",
			zap.String("key", key),
			zap.Error(err))
		return err
	}
	return nil
}

// List returns every key in the namespace with the prefix stripped. It uses
// SCAN so large namespaces do not block the server.
func (s *StatusStore) List(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	seen := make(map[string]struct{})

	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			// SCAN may return a key more than once
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, strings.TrimPrefix(k, s.prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// Ping checks connectivity for readiness probes.
func (s *StatusStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
