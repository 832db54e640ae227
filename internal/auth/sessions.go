package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore tracks live sessions by token id so that logout can
// revoke a token before it expires.
type SessionStore interface {
	Save(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error
	Exists(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string) error
}

// RedisSessionStore keeps sessions in Redis with a TTL matching the
// token lifetime.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore constructs a RedisSessionStore.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(tokenID string) string {
	return fmt.Sprintf("session:%s", tokenID)
}

// Save records the session for the token's lifetime.
func (s *RedisSessionStore) Save(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKey(tokenID), strconv.FormatInt(userID, 10), ttl).Err()
}

// Exists reports whether the session is still live.
func (s *RedisSessionStore) Exists(ctx context.Context, tokenID string) (bool, error) {
	count, err := s.client.Exists(ctx, sessionKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Revoke drops the session. Revoking an unknown token is not an error.
func (s *RedisSessionStore) Revoke(ctx context.Context, tokenID string) error {
	return s.client.Del(ctx, sessionKey(tokenID)).Err()
}
