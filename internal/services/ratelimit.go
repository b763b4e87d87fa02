package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pointmart/backend/internal/models"
)

// SearchLimiter bounds how many searches one user may run per window.
type SearchLimiter interface {
	// Allow records one search, or returns ErrRateLimited when the
	// user is over the limit.
	Allow(ctx context.Context, userID int64) error
}

// RedisSearchLimiter counts searches under search:ratelimit:<uid>. The
// window starts at the first search and is extended on every allowed one.
type RedisSearchLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRedisSearchLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisSearchLimiter {
	return &RedisSearchLimiter{redis: rdb, limit: limit, window: window}
}

func searchLimitKey(userID int64) string {
	return fmt.Sprintf("search:ratelimit:%d", userID)
}

func (l *RedisSearchLimiter) Allow(ctx context.Context, userID int64) error {
	key := searchLimitKey(userID)
	count, err := l.redis.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		return models.Storage("read search limit", err)
	}
	if count >= l.limit {
		return fmt.Errorf("%d searches in %s: %w", count, l.window, models.ErrRateLimited)
	}

	pipe := l.redis.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.Storage("count search", err)
	}
	return nil
}

// NoopSearchLimiter allows everything. Used when Redis is not configured.
type NoopSearchLimiter struct{}

func (NoopSearchLimiter) Allow(context.Context, int64) error { return nil }
