//go:build integration

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformredis "freshkeep/internal/platform/redis"
	"freshkeep/pkg/testutil/containers"
)

func TestRedisLock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	client := &platformredis.Client{Client: rc.Client}
	ctx := context.Background()

	t.Run("second holder is denied until release", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		first := NewRedisLock(client)
		second := NewRedisLock(client)

		acquired, err := first.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)

		acquired, err = second.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.False(t, acquired)

		require.NoError(t, first.Release(ctx))

		acquired, err = second.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("expired lock can be re-acquired", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		first := NewRedisLock(client)
		second := NewRedisLock(client)

		acquired, err := first.TryAcquire(ctx, 100*time.Millisecond)
		require.NoError(t, err)
		require.True(t, acquired)

		require.Eventually(t, func() bool {
			ok, err := second.TryAcquire(ctx, time.Minute)
			return err == nil && ok
		}, 5*time.Second, 50*time.Millisecond)
	})

	// Releasing after losing the lock must not clobber the new holder.
	t.Run("stale release is a no-op", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		first := NewRedisLock(client)
		second := NewRedisLock(client)

		acquired, err := first.TryAcquire(ctx, 100*time.Millisecond)
		require.NoError(t, err)
		require.True(t, acquired)

		require.Eventually(t, func() bool {
			ok, err := second.TryAcquire(ctx, time.Minute)
			return err == nil && ok
		}, 5*time.Second, 50*time.Millisecond)

		require.NoError(t, first.Release(ctx))

		acquired, err = first.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.False(t, acquired, "second holder's lock must survive a stale release")
	})
}
