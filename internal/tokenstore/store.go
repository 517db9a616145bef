package tokenstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	rd "github.com/redis/go-redis/v9"
)

const defaultPrefix = "supplylink"

// ErrTokenNotFound is returned when a reset token is unknown, expired or already used.
var ErrTokenNotFound = errors.New("token not found")

// Store keeps auth token state in Redis so it survives restarts and is shared across instances.
type Store struct {
	rdb    *rd.Client
	prefix string
}

// Option configures a Store
type Option func(*Store)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(rdb *rd.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Revoke denylists a token until ttl elapses. Non-positive ttls are ignored
// since the token is already expired.
func (s *Store) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, s.denylistKey(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether token was denylisted.
func (s *Store) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.denylistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// SaveResetToken maps a password-reset token to its user for ttl.
func (s *Store) SaveResetToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.resetKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken returns the user bound to token and deletes it atomically.
func (s *Store) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, s.resetKey(token)).Result()
	if errors.Is(err, rd.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return userID, nil
}

// Keys hold a digest of the token rather than the bearer secret itself.
func (s *Store) denylistKey(token string) string {
	return fmt.Sprintf("%s:auth:revoked:%s", s.prefix, digest(token))
}

func (s *Store) resetKey(token string) string {
	return fmt.Sprintf("%s:auth:reset:%s", s.prefix, digest(token))
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
