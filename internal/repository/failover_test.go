package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

func (m *mockCoordinator) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverCoordinator(t *testing.T) {
	primary := new(mockCoordinator)
	fallback := new(mockCoordinator)
	logger := zerolog.New(io.Discard)
	c := NewFailoverCoordinator(primary, fallback, &logger)
	ctx := context.Background()
	noop := func() {}

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("Acquire", ctx, "a", time.Second).Return(noop, nil).Once()

		release, err := c.Acquire(ctx, "a", time.Second)
		require.NoError(t, err)
		assert.NotNil(t, release)
		primary.AssertExpectations(t)
	})

	t.Run("ContentionDoesNotFailOver", func(t *testing.T) {
		primary.On("Acquire", ctx, "busy", time.Second).Return(nil, ErrLockTimeout).Once()

		_, err := c.Acquire(ctx, "busy", time.Second)
		assert.ErrorIs(t, err, ErrLockTimeout)
		assert.False(t, c.isDown.Load())
		fallback.AssertNotCalled(t, "Acquire", ctx, "busy", time.Second)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("Acquire", ctx, "b", time.Second).Return(nil, errors.New("connection refused")).Once()
		fallback.On("Acquire", ctx, "b", time.Second).Return(noop, nil).Once()

		_, err := c.Acquire(ctx, "b", time.Second)
		require.NoError(t, err)
		assert.True(t, c.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		fallback.On("CheckRateLimit", ctx, "ip", 5, time.Minute).Return(true, nil).Once()

		allowed, err := c.CheckRateLimit(ctx, "ip", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		primary.AssertNotCalled(t, "CheckRateLimit", ctx, "ip", 5, time.Minute)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		c.isDown.Store(true)
		c.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("CheckRateLimit", ctx, "ip2", 5, time.Minute).Return(false, nil).Once()

		allowed, err := c.CheckRateLimit(ctx, "ip2", 5, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.False(t, c.isDown.Load())
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		c.isDown.Store(true)
		c.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("Acquire", ctx, "c", time.Second).Return(nil, errors.New("still down")).Once()
		fallback.On("Acquire", ctx, "c", time.Second).Return(noop, nil).Once()

		_, err := c.Acquire(ctx, "c", time.Second)
		require.NoError(t, err)
		assert.True(t, c.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
