package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "denylist:"
	maxAttempts = 5
	baseBackoff = 50 * time.Millisecond
)

// RedisStore is a Store backed by Redis. Each denied token is a key holding
// the subject it belonged to, expiring when the token itself would have.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Store using the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Deny writes the token to the denylist with the given TTL. Retries transient
// failures; returns ErrUnavailable when Redis stays unreachable.
func (s *RedisStore) Deny(ctx context.Context, token, subject string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.withRetry(ctx, func() error {
		return s.client.Set(ctx, keyPrefix+token, subject, ttl).Err()
	})
}

// IsDenied reports whether the token has a live denylist entry. Retries
// transient failures; returns ErrUnavailable when Redis stays unreachable.
func (s *RedisStore) IsDenied(ctx context.Context, token string) (bool, error) {
	var n int64
	err := s.withRetry(ctx, func() error {
		var err error
		n, err = s.client.Exists(ctx, keyPrefix+token).Result()
		return err
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) withRetry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-time.After(baseBackoff << (attempt - 1)):
			}
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			break
		}
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
}
