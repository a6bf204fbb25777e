package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, user_agent, COALESCE(refresh_token, ''), is_active, created_at`

// Open creates an active session for the device. The refresh token is bound
// separately once minted.
func (r *PostgresRepository) Open(ctx context.Context, userID, userAgent string) (*domain.Session, error) {
	s := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		UserAgent: userAgent,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, user_agent, refresh_token, is_active, created_at)
		 VALUES ($1, $2, $3, NULL, TRUE, $4)`,
		s.ID, s.UserID, s.UserAgent, s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// BindRefreshToken stores the refresh token on the session.
func (r *PostgresRepository) BindRefreshToken(ctx context.Context, sessionID, refreshToken string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET refresh_token = $2 WHERE id = $1`,
		sessionID, refreshToken,
	)
	return err
}

// Close deactivates the session. Idempotent: closing an already closed or
// unknown session succeeds without effect.
func (r *PostgresRepository) Close(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE id = $1 AND is_active`,
		sessionID,
	)
	return err
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID,
	).Scan(&s.ID, &s.UserID, &s.UserAgent, &s.RefreshToken, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// FindActiveByDevice returns the active session for the (user, user agent)
// pair, or nil when the device has none. If a race left duplicates, the most
// recent one wins.
func (r *PostgresRepository) FindActiveByDevice(ctx context.Context, userID, userAgent string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND user_agent = $2 AND is_active
		 ORDER BY created_at DESC LIMIT 1`,
		userID, userAgent,
	).Scan(&s.ID, &s.UserID, &s.UserAgent, &s.RefreshToken, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListActive returns all active sessions for the user.
func (r *PostgresRepository) ListActive(ctx context.Context, userID string) ([]*domain.Session, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND is_active ORDER BY created_at DESC`,
		userID,
	)
}

// ListByUser returns the user's sessions newest first, optionally collapsed to
// the most recent session per user agent.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, uniqueAgents bool) ([]*domain.Session, error) {
	if uniqueAgents {
		return r.list(ctx,
			`SELECT DISTINCT ON (user_agent) `+sessionColumns+` FROM sessions
			 WHERE user_id = $1 ORDER BY user_agent, created_at DESC`,
			userID,
		)
	}
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Session, 0)
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.UserAgent, &s.RefreshToken, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
