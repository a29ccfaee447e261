package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore tracks live refresh sessions by JTI so that sign-out (and
// refresh rotation) revoke tokens server-side. A refresh token whose JTI
// is absent from the store is rejected even if its signature is valid.
type SessionStore interface {
	Save(ctx context.Context, userID, jti string, ttl time.Duration) error
	Valid(ctx context.Context, userID, jti string) (bool, error)
	Revoke(ctx context.Context, userID, jti string) error
}

type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func sessionKey(userID, jti string) string {
	return fmt.Sprintf("auth:refresh:%s:%s", userID, jti)
}

func (s *RedisSessionStore) Save(ctx context.Context, userID, jti string, ttl time.Duration) error {
	return s.rdb.Set(ctx, sessionKey(userID, jti), "1", ttl).Err()
}

func (s *RedisSessionStore) Valid(ctx context.Context, userID, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, sessionKey(userID, jti)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisSessionStore) Revoke(ctx context.Context, userID, jti string) error {
	return s.rdb.Del(ctx, sessionKey(userID, jti)).Err()
}

// MemorySessionStore is a test double; it ignores TTLs.
type MemorySessionStore struct {
	mu   sync.Mutex
	live map[string]struct{}
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{live: map[string]struct{}{}}
}

func (s *MemorySessionStore) Save(ctx context.Context, userID, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[sessionKey(userID, jti)] = struct{}{}
	return nil
}

func (s *MemorySessionStore) Valid(ctx context.Context, userID, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[sessionKey(userID, jti)]
	return ok, nil
}

func (s *MemorySessionStore) Revoke(ctx context.Context, userID, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, sessionKey(userID, jti))
	return nil
}
