package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/pointmart/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSearchLimiter(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRedisSearchLimiter(db, 3, time.Hour)
	ctx := context.Background()

	t.Run("first search starts the window", func(t *testing.T) {
		mock.ExpectGet("search:ratelimit:7").RedisNil()
		mock.ExpectIncr("search:ratelimit:7").SetVal(1)
		mock.ExpectExpire("search:ratelimit:7", time.Hour).SetVal(true)

		require.NoError(t, limiter.Allow(ctx, 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("under the limit", func(t *testing.T) {
		mock.ExpectGet("search:ratelimit:7").SetVal("2")
		mock.ExpectIncr("search:ratelimit:7").SetVal(3)
		mock.ExpectExpire("search:ratelimit:7", time.Hour).SetVal(true)

		require.NoError(t, limiter.Allow(ctx, 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("at the limit", func(t *testing.T) {
		mock.ExpectGet("search:ratelimit:7").SetVal("3")

		err := limiter.Allow(ctx, 7)
		assert.ErrorIs(t, err, models.ErrRateLimited)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure is a storage error", func(t *testing.T) {
		mock.ExpectGet("search:ratelimit:7").SetErr(errors.New("connection refused"))

		err := limiter.Allow(ctx, 7)
		assert.ErrorIs(t, err, models.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNoopSearchLimiter(t *testing.T) {
	var limiter SearchLimiter = NoopSearchLimiter{}
	for i := 0; i < 1000; i++ {
		require.NoError(t, limiter.Allow(context.Background(), 1))
	}
}
