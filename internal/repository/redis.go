package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arena/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockRetryMin = 10 * time.Millisecond
	lockRetryMax = 200 * time.Millisecond
)

// releaseScript deletes the lock only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCoordinator shares locks and rate limits between API instances.
type RedisCoordinator struct {
	client *redis.Client
	prefix string
}

// NewRedisClient builds a client from config without connecting.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCoordinator(client *redis.Client, prefix string) *RedisCoordinator {
	if prefix == "" {
		prefix = "arena"
	}
	return &RedisCoordinator{client: client, prefix: prefix}
}

func (r *RedisCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	lockKey := fmt.Sprintf("%s:lock:%s", r.prefix, key)
	token := uuid.NewString()

	wait := lockRetryMin
	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, fmt.Errorf("failed to acquire lock in redis: %w", err)
		}
		if ok {
			return func() { r.release(lockKey, token) }, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-timer.C:
		}
		wait = min(wait*2, lockRetryMax)
	}
}

func (r *RedisCoordinator) release(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// An expired lock needs no release.
	_ = releaseScript.Run(ctx, r.client, []string{lockKey}, token).Err()
}

func (r *RedisCoordinator) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rlKey := fmt.Sprintf("%s:rate_limit:%s", r.prefix, key)
	count, err := r.client.Incr(ctx, rlKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, rlKey, window).Err(); err != nil {
			// A counter without a TTL would block the client forever.
			_ = r.client.Del(ctx, rlKey).Err()
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return errors.New("redis client is nil")
	}
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
