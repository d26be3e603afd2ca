package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when a lock is held elsewhere and the retry
// budget ran out.
var ErrNotObtained = errors.New("lock not obtained")

// RedisLocker coordinates lock keys across processes. It retries with a
// linear backoff for a few seconds before giving up, which keeps the blocking
// behaviour close to the in-process KeyedMutex.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl}
}

func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := r.client.Obtain(ctx, fmt.Sprintf("pmlock:%s", key), r.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotObtained)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	release := func() {
		// The request context may already be done by release time.
		_ = lock.Release(context.Background())
	}
	return release, nil
}
