// Package registry enforces the per-user concurrent-session policy: a user
// holds at most maxSessions active sessions, and admitting one past the cap
// evicts the oldest.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"user-auth-service/internal/security"
	"user-auth-service/internal/session/domain"
	"user-auth-service/internal/session/repository"
)

var (
	// ErrNotFound is returned by Touch and Deactivate when the session does
	// not exist, and by Touch when it is inactive.
	ErrNotFound = errors.New("session not found")
	// ErrMissingMetadata is returned by Admit when device info or IP is empty.
	ErrMissingMetadata = errors.New("device info and ip address are required")
)

// Registry admits, touches, and deactivates sessions against the backing
// store. Admission for a single user is serialized with a per-user lock so
// concurrent logins cannot race past the cap; operations for distinct users
// do not contend.
type Registry struct {
	repo        repository.Repository
	maxSessions int
	now         func() time.Time
	newID       func() (string, error)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a Registry over repo with the given session cap. now and newID
// are injectable for deterministic tests; pass nil for the real clock and
// crypto-random ids.
func New(repo repository.Repository, maxSessions int, now func() time.Time, newID func() (string, error)) *Registry {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if newID == nil {
		newID = security.NewSessionID
	}
	return &Registry{
		repo:        repo,
		maxSessions: maxSessions,
		now:         now,
		newID:       newID,
		locks:       map[string]*sync.Mutex{},
	}
}

// Admit creates a new active session for the user. When the user already
// holds maxSessions active sessions, the one with the oldest created_at
// (ties broken by lowest id) is deactivated first and returned as evicted;
// the caller must revoke the evicted session's jti in the same operation.
func (r *Registry) Admit(ctx context.Context, userID, deviceInfo, ipAddress string) (sess *domain.Session, evicted *domain.Session, err error) {
	if deviceInfo == "" || ipAddress == "" {
		return nil, nil, ErrMissingMetadata
	}

	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	count, err := r.repo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if count >= r.maxSessions {
		oldest, err := r.repo.OldestActiveByUser(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		if oldest != nil {
			if _, err := r.repo.Deactivate(ctx, oldest.ID); err != nil {
				return nil, nil, err
			}
			oldest.IsActive = false
			evicted = oldest
		}
	}

	id, err := r.newID()
	if err != nil {
		return nil, nil, err
	}
	now := r.now()
	sess = &domain.Session{
		ID:           id,
		UserID:       userID,
		DeviceInfo:   deviceInfo,
		IPAddress:    ipAddress,
		IsActive:     true,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := r.repo.Create(ctx, sess); err != nil {
		return nil, nil, err
	}
	return sess, evicted, nil
}

// Touch refreshes last_active_at. Returns ErrNotFound when the session is
// missing or inactive; callers treat that as the session being gone.
// Last write wins under concurrent touches; the timestamp is advisory.
func (r *Registry) Touch(ctx context.Context, sessionID string) error {
	ok, err := r.repo.Touch(ctx, sessionID, r.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Deactivate marks the session inactive. Deactivating an already-inactive
// session is not an error; only a session that never existed is ErrNotFound.
func (r *Registry) Deactivate(ctx context.Context, sessionID string) error {
	found, err := r.repo.Deactivate(ctx, sessionID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// ListActive returns the user's active sessions ordered by created_at
// ascending, ties broken by lowest id.
func (r *Registry) ListActive(ctx context.Context, userID string) ([]*domain.Session, error) {
	return r.repo.ListActiveByUser(ctx, userID)
}

// userLock returns the admission lock for userID. The lock map grows with
// the number of distinct users seen by this process and is never shrunk.
func (r *Registry) userLock(userID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	return l
}
