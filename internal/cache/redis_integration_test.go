package cache_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturmelo/flagbearer/internal/cache"
	"github.com/arturmelo/flagbearer/internal/testsupport"
)

// newTestRedisCache provisions a throwaway Redis container wrapped in the
// result cache service. Requires Docker; skipped in -short mode.
func newTestRedisCache(t *testing.T, ttl time.Duration) cache.Service {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testsupport.StartRedisContainer(ctx, ttl)
	require.NoError(t, err)
	t.Cleanup(func() {
		termCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(termCtx)
	})

	return container.Cache
}

func TestRedisCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c := newTestRedisCache(t, time.Minute)

	_, found, err := c.GetResult(ctx, "feature_flag_evaluation:1:user1:-:-")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetResult(ctx, "feature_flag_evaluation:1:user1:-:-", true))
	require.NoError(t, c.SetResult(ctx, "feature_flag_evaluation:1:-:-:-", false))

	value, found, err := c.GetResult(ctx, "feature_flag_evaluation:1:user1:-:-")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, value)

	value, found, err = c.GetResult(ctx, "feature_flag_evaluation:1:-:-:-")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, value)
}

func TestRedisCache_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := newTestRedisCache(t, time.Minute)

	// More keys than one SCAN batch to exercise batched deletion.
	for i := 0; i < 250; i++ {
		key := "feature_flag_evaluation:42:user" + strconv.Itoa(i) + ":-:-"
		require.NoError(t, c.SetResult(ctx, key, true))
	}
	require.NoError(t, c.SetResult(ctx, "feature_flag_evaluation:421:user1:-:-", true))

	require.NoError(t, c.DeletePrefix(ctx, "feature_flag_evaluation:42:"))

	_, found, err := c.GetResult(ctx, "feature_flag_evaluation:42:user0:-:-")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = c.GetResult(ctx, "feature_flag_evaluation:42:user249:-:-")
	require.NoError(t, err)
	assert.False(t, found)

	// Keys of other flags survive the sweep.
	_, found, err = c.GetResult(ctx, "feature_flag_evaluation:421:user1:-:-")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestRedisCache(t, time.Second)

	require.NoError(t, c.SetResult(ctx, "feature_flag_evaluation:1:user1:-:-", true))

	assert.Eventually(t, func() bool {
		_, found, err := c.GetResult(ctx, "feature_flag_evaluation:1:user1:-:-")
		return err == nil && !found
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRedisCache_HealthCheck(t *testing.T) {
	c := newTestRedisCache(t, time.Minute)

	assert.NoError(t, c.HealthCheck(context.Background()))
}
