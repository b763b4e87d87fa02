package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pointmart/backend/internal/models"
)

// FileCollector buffers an admin's uploads between /index and /indexdone.
type FileCollector interface {
	Reset(ctx context.Context, adminID int64) error
	Add(ctx context.Context, adminID int64, f models.CollectedFile) (int, error)
	Drain(ctx context.Context, adminID int64) ([]models.CollectedFile, error)
}

type MemoryCollector struct {
	mu    sync.Mutex
	files map[int64][]models.CollectedFile
}

func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{files: make(map[int64][]models.CollectedFile)}
}

func (c *MemoryCollector) Reset(_ context.Context, adminID int64) error {
	c.mu.Lock()
	delete(c.files, adminID)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCollector) Add(_ context.Context, adminID int64, f models.CollectedFile) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[adminID] = append(c.files[adminID], f)
	return len(c.files[adminID]), nil
}

func (c *MemoryCollector) Drain(_ context.Context, adminID int64) ([]models.CollectedFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	files := c.files[adminID]
	delete(c.files, adminID)
	return files, nil
}

// RedisCollector keeps the buffer as a list under collect:<uid>.
type RedisCollector struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisCollector(rdb *redis.Client, ttl time.Duration) *RedisCollector {
	return &RedisCollector{redis: rdb, ttl: ttl}
}

func collectKey(adminID int64) string {
	return fmt.Sprintf("collect:%d", adminID)
}

func (c *RedisCollector) Reset(ctx context.Context, adminID int64) error {
	return models.Storage("reset collection", c.redis.Del(ctx, collectKey(adminID)).Err())
}

func (c *RedisCollector) Add(ctx context.Context, adminID int64, f models.CollectedFile) (int, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return 0, err
	}

	key := collectKey(adminID)
	pipe := c.redis.Pipeline()
	push := pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, models.Storage("collect file", err)
	}
	return int(push.Val()), nil
}

func (c *RedisCollector) Drain(ctx context.Context, adminID int64) ([]models.CollectedFile, error) {
	key := collectKey(adminID)
	raw, err := c.redis.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, models.Storage("read collection", err)
	}

	files := make([]models.CollectedFile, 0, len(raw))
	for _, item := range raw {
		var f models.CollectedFile
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			return nil, models.Storage("decode collected file", err)
		}
		files = append(files, f)
	}

	if err := c.redis.Del(ctx, key).Err(); err != nil {
		return nil, models.Storage("clear collection", err)
	}
	return files, nil
}
