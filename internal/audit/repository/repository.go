package repository

import (
	"context"

	"user-auth-service/internal/audit/domain"
)

// Repository defines persistence for auth events.
type Repository interface {
	Create(ctx context.Context, e *domain.AuthEvent) error
	// ListByUser returns the user's events newest first, paginated by limit
	// and offset.
	ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuthEvent, error)
}
