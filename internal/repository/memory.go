package repository

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryCoordinator provides per-key locks and rate limits within one process.
type MemoryCoordinator struct {
	locks sync.Map // map[string]chan struct{}

	mu         sync.Mutex
	rateLimits map[string]*rateLimitEntry
	nextSweep  time.Time
}

func NewMemoryCoordinator() *MemoryCoordinator {
	return &MemoryCoordinator{rateLimits: make(map[string]*rateLimitEntry)}
}

// Acquire blocks until key is free or ctx ends. ttl is not needed in-process.
func (r *MemoryCoordinator) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	v, _ := r.locks.LoadOrStore(key, make(chan struct{}, 1))
	sem := v.(chan struct{})

	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryCoordinator) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.After(r.nextSweep) {
		r.sweep(now)
		r.nextSweep = now.Add(window)
	}

	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

// sweep drops expired windows; callers hold r.mu.
func (r *MemoryCoordinator) sweep(now time.Time) {
	for key, entry := range r.rateLimits {
		if now.After(entry.expiresAt) {
			delete(r.rateLimits, key)
		}
	}
}
