package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/PeterGeers/myadmin/internal/redissvc"
	"github.com/redis/go-redis/v9"
)

var ErrUnknownRefreshToken = errors.New("unknown or expired refresh token")

// RefreshStore keeps single-use refresh tokens mapped to usernames.
type RefreshStore interface {
	Save(ctx context.Context, token, username string, ttl time.Duration) error
	// Consume returns the username of token and removes it.
	Consume(ctx context.Context, token string) (string, error)
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

const refreshPrefix = "refresh:"

type RedisRefreshStore struct {
	rdb *redis.Client
}

func NewRedisRefreshStore(rs *redissvc.RedisService) *RedisRefreshStore {
	return &RedisRefreshStore{rdb: rs.Rdb()}
}

func (s *RedisRefreshStore) Save(ctx context.Context, token, username string, ttl time.Duration) error {
	return s.rdb.Set(ctx, refreshPrefix+token, username, ttl).Err()
}

func (s *RedisRefreshStore) Consume(ctx context.Context, token string) (string, error) {
	username, err := s.rdb.GetDel(ctx, refreshPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrUnknownRefreshToken
	}
	return username, err
}

type refreshEntry struct {
	username string
	expires  time.Time
}

// MemoryRefreshStore holds refresh tokens in process. Expired tokens are
// rejected on use and removed by Cleanup.
type MemoryRefreshStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]refreshEntry
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{now: time.Now, entries: map[string]refreshEntry{}}
}

func (s *MemoryRefreshStore) SetClock(now func() time.Time) { s.now = now }

func (s *MemoryRefreshStore) Save(_ context.Context, token, username string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = refreshEntry{username: username, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryRefreshStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	delete(s.entries, token)
	if !ok || s.now().After(e.expires) {
		return "", ErrUnknownRefreshToken
	}
	return e.username, nil
}

// Cleanup drops expired tokens and returns how many were removed.
func (s *MemoryRefreshStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

func (s *MemoryRefreshStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
