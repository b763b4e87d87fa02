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

// SessionStore keeps one conversational mode per user. Setting a mode
// replaces the previous one.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (models.Session, error)
	SetMode(ctx context.Context, userID int64, mode models.Mode) error
	Clear(ctx context.Context, userID int64) error
	// TakeMode resets the session to Idle only if its mode is still want
	// and reports whether this call did the reset.
	TakeMode(ctx context.Context, userID int64, want models.Mode) (bool, error)
}

type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]models.Session
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[int64]models.Session),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Get(_ context.Context, userID int64) (models.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess, nil
	}
	sess = models.Session{UserID: userID, Mode: models.IdleMode(), UpdatedAt: s.now()}
	s.sessions[userID] = sess
	return sess, nil
}

func (s *MemorySessionStore) SetMode(_ context.Context, userID int64, mode models.Mode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[userID] = models.Session{UserID: userID, Mode: mode, UpdatedAt: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Clear(ctx context.Context, userID int64) error {
	return s.SetMode(ctx, userID, models.IdleMode())
}

func (s *MemorySessionStore) TakeMode(_ context.Context, userID int64, want models.Mode) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok || sess.Mode != want {
		return false, nil
	}
	s.sessions[userID] = models.Session{UserID: userID, Mode: models.IdleMode(), UpdatedAt: s.now()}
	return true, nil
}

// takeModeScript swaps in the idle session (ARGV[3]) when the stored mode
// matches kind ARGV[1] and action ARGV[2]. ARGV[4] is the TTL in ms.
const takeModeScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
local mode = cjson.decode(raw)['mode'] or {}
if mode['kind'] ~= ARGV[1] or (mode['action'] or '') ~= ARGV[2] then return 0 end
if tonumber(ARGV[4]) > 0 then
  redis.call('SET', KEYS[1], ARGV[3], 'PX', ARGV[4])
else
  redis.call('SET', KEYS[1], ARGV[3])
end
return 1`

// RedisSessionStore keeps sessions as JSON under session:<uid>. A key that
// expired reads back as a fresh Idle session.
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{redis: rdb, ttl: ttl, now: time.Now}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

func (s *RedisSessionStore) Get(ctx context.Context, userID int64) (models.Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(userID)).Bytes()
	if err == redis.Nil {
		sess := models.Session{UserID: userID, Mode: models.IdleMode(), UpdatedAt: s.now().UTC()}
		return sess, s.put(ctx, sess)
	}
	if err != nil {
		return models.Session{}, models.Storage("get session", err)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return models.Session{}, models.Storage("decode session", err)
	}
	if err := sess.Mode.Validate(); err != nil {
		// A corrupt mode strands the user, so start over.
		sess.Mode = models.IdleMode()
	}
	return sess, nil
}

func (s *RedisSessionStore) SetMode(ctx context.Context, userID int64, mode models.Mode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	return s.put(ctx, models.Session{UserID: userID, Mode: mode, UpdatedAt: s.now().UTC()})
}

func (s *RedisSessionStore) Clear(ctx context.Context, userID int64) error {
	return s.SetMode(ctx, userID, models.IdleMode())
}

func (s *RedisSessionStore) TakeMode(ctx context.Context, userID int64, want models.Mode) (bool, error) {
	idle, err := json.Marshal(models.Session{UserID: userID, Mode: models.IdleMode(), UpdatedAt: s.now().UTC()})
	if err != nil {
		return false, err
	}
	n, err := s.redis.Eval(ctx, takeModeScript, []string{sessionKey(userID)},
		string(want.Kind), string(want.Action), string(idle), s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, models.Storage("take session mode", err)
	}
	return n == 1, nil
}

func (s *RedisSessionStore) put(ctx context.Context, sess models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return models.Storage("set session", s.redis.Set(ctx, sessionKey(sess.UserID), data, s.ttl).Err())
}
