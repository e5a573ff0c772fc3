package repository

import (
	"context"

	"user-auth-service/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByIdentifier resolves a login identifier against username, email,
	// and mobile number in a single lookup. All three columns are unique,
	// so at most one row can match.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	// Create persists the user. Uniqueness violations are reported as
	// *domain.DuplicateError naming the conflicting field.
	Create(ctx context.Context, u *domain.User) error
}
