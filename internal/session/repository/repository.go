package repository

import (
	"context"

	"auth-service/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	// Open creates an active session for the device with no refresh token
	// bound yet.
	Open(ctx context.Context, userID, userAgent string) (*domain.Session, error)
	// BindRefreshToken stores the refresh token on the session. This is the
	// only refresh-token mutation; rotation closes the session and opens a
	// new one instead of rebinding.
	BindRefreshToken(ctx context.Context, sessionID, refreshToken string) error
	// Close deactivates the session. Closing an inactive or unknown session
	// is a no-op.
	Close(ctx context.Context, sessionID string) error
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	// FindActiveByDevice returns the active session for (user, device), or
	// nil when the device has none.
	FindActiveByDevice(ctx context.Context, userID, userAgent string) (*domain.Session, error)
	ListActive(ctx context.Context, userID string) ([]*domain.Session, error)
	// ListByUser returns the user's sessions newest first. With uniqueAgents
	// only the most recent session per user agent is returned.
	ListByUser(ctx context.Context, userID string, uniqueAgents bool) ([]*domain.Session, error)
}
