package repository

import (
	"context"
	"time"

	"user-auth-service/internal/session/domain"
)

// Repository defines persistence for sessions. Implementations return
// (nil, nil) or (false, nil) for missing rows; errors are store failures only.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// CountActiveByUser returns the number of sessions with is_active=true
	// for the user.
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	// OldestActiveByUser returns the active session with the earliest
	// created_at, ties broken by lowest id, or nil when the user has none.
	OldestActiveByUser(ctx context.Context, userID string) (*domain.Session, error)
	// ListActiveByUser returns active sessions ordered by created_at
	// ascending, ties broken by lowest id.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// Deactivate sets is_active=false. Returns false when no such session
	// exists; deactivating an already-inactive session returns true.
	Deactivate(ctx context.Context, id string) (bool, error)
	// Touch sets last_active_at on an active session. Returns false when
	// the session is missing or inactive.
	Touch(ctx context.Context, id string, at time.Time) (bool, error)
}
