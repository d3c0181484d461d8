package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"arena/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverCoordinator uses primary until it errors, then serves from
// fallback and retries primary once per retryAfter.
type FailoverCoordinator struct {
	primary    domain.Coordinator
	fallback   domain.Coordinator
	logger     *zerolog.Logger
	retryAfter time.Duration
	isDown     atomic.Bool
	lastCheck  atomic.Int64 // unix nanos
}

func NewFailoverCoordinator(primary, fallback domain.Coordinator, logger *zerolog.Logger) *FailoverCoordinator {
	return &FailoverCoordinator{
		primary:    primary,
		fallback:   fallback,
		logger:     logger,
		retryAfter: time.Minute,
	}
}

func (r *FailoverCoordinator) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	if time.Since(last) > r.retryAfter {
		r.lastCheck.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (r *FailoverCoordinator) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary coordinator failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverCoordinator) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary coordinator recovered")
	}
}

func (r *FailoverCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if r.usePrimary() {
		release, err := r.primary.Acquire(ctx, key, ttl)
		if err == nil {
			r.markUp()
			return release, nil
		}
		// Contention is not an outage.
		if errors.Is(err, ErrLockTimeout) {
			return nil, err
		}
		r.markDown(err)
	}
	return r.fallback.Acquire(ctx, key, ttl)
}

func (r *FailoverCoordinator) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
