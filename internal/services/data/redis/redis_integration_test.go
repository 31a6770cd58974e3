package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amerfu/llm-fallback/internal/services/cooloff"
	"github.com/amerfu/llm-fallback/internal/services/providers"
	"github.com/amerfu/llm-fallback/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestStatusStoreIntegration runs the cool-off store against a real Redis.
func TestStatusStoreIntegration(t *testing.T) {
	client := testutil.NewTestRedis(t)
	logger := zap.NewNop()
	ctx := context.Background()

	kv := NewStatusStore(&StatusStoreConfig{
		Client:    client,
		Logger:    logger,
		KeyPrefix: "it",
		TTL:       time.Hour,
	})
	store := cooloff.NewStore(kv, logger)

	t.Run("record and read back", func(t *testing.T) {
		now := time.Now().UnixMilli()
		require.NoError(t, store.RecordFailure(ctx, providers.Groq, "llama-3.3-70b-versatile", now))

		cooling, err := store.IsInCooldown(ctx, providers.Groq, "llama-3.3-70b-versatile", now+1, 120)
		require.NoError(t, err)
		assert.True(t, cooling)
	})

	t.Run("concurrent writers last write wins", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 1; i <= 20; i++ {
			wg.Add(1)
			go func(at int64) {
				defer wg.Done()
				assert.NoError(t, store.RecordFailure(ctx, providers.Fireworks, "m", at))
			}(int64(i))
		}
		wg.Wait()

		statuses, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Contains(t, statuses, providers.Fireworks)
		assert.GreaterOrEqual(t, statuses[providers.Fireworks]["m"], int64(1))
	})
}
