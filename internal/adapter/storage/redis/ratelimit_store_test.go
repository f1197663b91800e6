package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_Allow(t *testing.T) {
	mr, client := newTestClient(t)

	store := NewRateLimitStore(client)
	clock := time.Unix(1_772_366_400, 0) // aligned to a minute boundary
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			result, err := store.Allow(ctx, "webhook:10.0.0.1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d should be allowed", i)
			assert.Equal(t, int64(3), result.Limit)
			assert.Equal(t, 3-i, result.Remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		result, err := store.Allow(ctx, "webhook:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(0), result.Remaining)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		result, err := store.Allow(ctx, "webhook:10.0.0.2", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(4), result.Remaining)
	})

	t.Run("window key expires", func(t *testing.T) {
		key := "webhook:10.0.0.3"
		_, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)

		result, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)

		mr.FastForward(61 * time.Second)

		result, err = store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("new window resets counter", func(t *testing.T) {
		key := "webhook:10.0.0.4"
		_, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)

		clock = clock.Add(time.Minute)
		result, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, clock.Unix()+60, result.ResetAt)
	})

	t.Run("redis unavailable", func(t *testing.T) {
		mr.Close()
		_, err := store.Allow(ctx, "webhook:10.0.0.5", 1, time.Minute)
		assert.Error(t, err)
	})
}
