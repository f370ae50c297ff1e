package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wardenhq/warden/internal/shared"
)

const sessionKeyPrefix = "warden:session:"

// SessionStore keeps opaque bearer tokens in Redis. A token maps to the
// account guid only; the account itself is reloaded per request so status
// changes take effect immediately.
type SessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSessionStore builds a SessionStore.
func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

// TTL reports the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Issue creates a new session token for the account.
func (s *SessionStore) Issue(ctx context.Context, guid string) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, sessionKeyPrefix+token, guid, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve maps a token back to the account guid, refreshing the session TTL.
// An unknown or expired token surfaces as unauthorized.
func (s *SessionStore) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", shared.ErrUnauthorized
	}
	guid, err := s.client.GetEx(ctx, sessionKeyPrefix+token, s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: unknown session", shared.ErrUnauthorized)
	}
	if err != nil {
		return "", err
	}
	return guid, nil
}

// Revoke drops a session token. Revoking an unknown token is a no-op.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKeyPrefix+token).Err()
}
