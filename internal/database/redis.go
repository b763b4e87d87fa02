package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/logger"
)

// InitRedis connects to Redis. It returns nil when Redis is disabled or
// unreachable; callers fall back to in-process stores.
func InitRedis(cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if !cfg.Enabled {
		log.Info("Redis disabled, using in-memory stores")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis connection failed, continuing without Redis", "error", err)
		rdb.Close()
		return nil
	}

	log.Info("Redis connection established", "addr", cfg.Host+":"+cfg.Port)
	return rdb
}
