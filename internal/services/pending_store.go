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

// PendingStore holds at most one pending purchase per user. Put replaces.
// Take removes and returns the reservation atomically.
type PendingStore interface {
	Put(ctx context.Context, p models.PendingPurchase) error
	Get(ctx context.Context, userID int64) (models.PendingPurchase, bool, error)
	Take(ctx context.Context, userID int64) (models.PendingPurchase, bool, error)
	Delete(ctx context.Context, userID int64) error
}

type MemoryPendingStore struct {
	mu      sync.Mutex
	pending map[int64]models.PendingPurchase
}

func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{pending: make(map[int64]models.PendingPurchase)}
}

func (s *MemoryPendingStore) Put(_ context.Context, p models.PendingPurchase) error {
	s.mu.Lock()
	s.pending[p.UserID] = p
	s.mu.Unlock()
	return nil
}

func (s *MemoryPendingStore) Get(_ context.Context, userID int64) (models.PendingPurchase, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	return p, ok, nil
}

func (s *MemoryPendingStore) Take(_ context.Context, userID int64) (models.PendingPurchase, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	delete(s.pending, userID)
	return p, ok, nil
}

func (s *MemoryPendingStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.pending, userID)
	s.mu.Unlock()
	return nil
}

// Len is the number of live reservations.
func (s *MemoryPendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RedisPendingStore keeps reservations under pending:<uid>, expiring with
// the maximum pending age so abandoned ones cost nothing.
type RedisPendingStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisPendingStore(rdb *redis.Client, ttl time.Duration) *RedisPendingStore {
	return &RedisPendingStore{redis: rdb, ttl: ttl}
}

func pendingKey(userID int64) string {
	return fmt.Sprintf("pending:%d", userID)
}

func (s *RedisPendingStore) Put(ctx context.Context, p models.PendingPurchase) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return models.Storage("put pending purchase", s.redis.Set(ctx, pendingKey(p.UserID), data, s.ttl).Err())
}

func (s *RedisPendingStore) Get(ctx context.Context, userID int64) (models.PendingPurchase, bool, error) {
	return decodePending("get pending purchase", s.redis.Get(ctx, pendingKey(userID)))
}

// Take uses GETDEL, which needs Redis 6.2 or newer.
func (s *RedisPendingStore) Take(ctx context.Context, userID int64) (models.PendingPurchase, bool, error) {
	return decodePending("take pending purchase", s.redis.GetDel(ctx, pendingKey(userID)))
}

func decodePending(op string, cmd *redis.StringCmd) (models.PendingPurchase, bool, error) {
	data, err := cmd.Bytes()
	if err == redis.Nil {
		return models.PendingPurchase{}, false, nil
	}
	if err != nil {
		return models.PendingPurchase{}, false, models.Storage(op, err)
	}

	var p models.PendingPurchase
	if err := json.Unmarshal(data, &p); err != nil {
		return models.PendingPurchase{}, false, models.Storage("decode pending purchase", err)
	}
	return p, true, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, userID int64) error {
	return models.Storage("delete pending purchase", s.redis.Del(ctx, pendingKey(userID)).Err())
}
