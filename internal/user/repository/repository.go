package repository

import (
	"context"

	"auth-service/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Update rewrites login, email, first and last name. Password and
	// active flag have dedicated mutations.
	Update(ctx context.Context, u *domain.User) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	SetActive(ctx context.Context, userID string, active bool) error
}
