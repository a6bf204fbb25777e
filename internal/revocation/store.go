// Package revocation tracks revoked tokens until their natural expiry.
package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the backing store cannot be reached after
// retries. Callers must treat it as "cannot prove the token is valid", never
// as "not denied".
var ErrUnavailable = errors.New("revocation store unavailable")

// Store is the denylist consulted on every token verification.
type Store interface {
	// Deny marks the token as revoked for ttl. Denying an already denied
	// token refreshes its TTL. A non-positive ttl is a no-op: the token is
	// already expired and needs no entry.
	Deny(ctx context.Context, token, subject string, ttl time.Duration) error
	// IsDenied reports whether the token is currently revoked.
	IsDenied(ctx context.Context, token string) (bool, error)
}
