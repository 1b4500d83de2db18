package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextgendevs/ng-backend/internal/auth"
)

func revokedSessionKey(id string) string  { return "sessions/revoked:" + id }
func revokedUserKey(userID string) string { return "sessions/revoked-before:" + userID }

// SessionStore remembers session tokens that ended before they expired: one
// session on logout, or every session of a user on deactivation. Markers only
// live as long as the tokens they cancel.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore takes the session lifetime, which bounds how long a
// user-wide revocation has to be kept.
func NewSessionStore(client *redis.Client, sessionTTL time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: sessionTTL}
}

// Revoke cancels one session until its token expires
func (s *SessionStore) Revoke(ctx context.Context, c auth.Claims) error {
	ttl := s.ttl
	if !c.ExpiresAt.IsZero() {
		ttl = time.Until(c.ExpiresAt)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedSessionKey(c.ID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeUser cancels every session of userID issued at or before at
func (s *SessionStore) RevokeUser(ctx context.Context, userID string, at time.Time) error {
	if err := s.client.Set(ctx, revokedUserKey(userID), at.Unix(), s.ttl).Err(); err != nil {
		return fmt.Errorf("revoke sessions of %s: %w", userID, err)
	}
	return nil
}

func (s *SessionStore) Revoked(ctx context.Context, c auth.Claims) (bool, error) {
	n, err := s.client.Exists(ctx, revokedSessionKey(c.ID)).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	raw, err := s.client.Get(ctx, revokedUserKey(c.Subject)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user sessions: %w", err)
	}
	before, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("corrupt revocation marker for %s: %w", c.Subject, err)
	}
	return c.IssuedAt.Unix() <= before, nil
}
