package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCoordinator_Lock(t *testing.T) {
	c := NewMemoryCoordinator()
	ctx := context.Background()

	release, err := c.Acquire(ctx, "alloc:2025-07-12", time.Second)
	require.NoError(t, err)

	// Another key is independent.
	other, err := c.Acquire(ctx, "alloc:2025-07-13", time.Second)
	require.NoError(t, err)
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = c.Acquire(waitCtx, "alloc:2025-07-12", time.Second)
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	release() // second release is a no-op

	again, err := c.Acquire(ctx, "alloc:2025-07-12", time.Second)
	require.NoError(t, err)
	again()
}

func TestMemoryCoordinator_MutualExclusion(t *testing.T) {
	c := NewMemoryCoordinator()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := c.Acquire(ctx, "k", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestMemoryCoordinator_RateLimit(t *testing.T) {
	c := NewMemoryCoordinator()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := c.CheckRateLimit(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := c.CheckRateLimit(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = c.CheckRateLimit(ctx, "10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = c.CheckRateLimit(ctx, "short", 1, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
	time.Sleep(5 * time.Millisecond)
	allowed, err = c.CheckRateLimit(ctx, "short", 1, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryCoordinator_RateLimitDropsExpiredWindows(t *testing.T) {
	c := NewMemoryCoordinator()
	ctx := context.Background()

	for _, key := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		_, err := c.CheckRateLimit(ctx, key, 1, 5*time.Millisecond)
		require.NoError(t, err)
	}
	time.Sleep(20 * time.Millisecond)

	allowed, err := c.CheckRateLimit(ctx, "10.0.0.4", 1, 5*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.rateLimits, 1)
	assert.Contains(t, c.rateLimits, "10.0.0.4")
}
