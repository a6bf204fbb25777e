package repository

import (
	"context"

	"auth-service/internal/role/domain"
)

// Repository defines persistence for roles and role assignments.
type Repository interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Create(ctx context.Context, r *domain.Role) error
	// IDsForUser returns the role IDs assigned to the user, for embedding
	// into token claims at issuance time.
	IDsForUser(ctx context.Context, userID string) ([]string, error)
	AssignToUser(ctx context.Context, userID, roleID string) error
}
