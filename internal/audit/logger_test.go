package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"user-auth-service/internal/audit/domain"
)

type mockEventRepo struct {
	entries   []*domain.AuthEvent
	createErr error
}

func (m *mockEventRepo) Create(ctx context.Context, e *domain.AuthEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockEventRepo) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuthEvent, error) {
	return nil, nil
}

func TestLogger_LogEvent(t *testing.T) {
	repo := &mockEventRepo{}
	logger := NewLogger(repo, slog.New(slog.DiscardHandler))

	logger.LogEvent(context.Background(), "user-1", ActionLoginSuccess, "192.168.1.1", "session=abc")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.UserID != "user-1" {
		t.Errorf("user_id = %q, want user-1", e.UserID)
	}
	if e.Action != ActionLoginSuccess {
		t.Errorf("action = %q, want %q", e.Action, ActionLoginSuccess)
	}
	if e.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want 192.168.1.1", e.IP)
	}
	if e.Metadata != "session=abc" {
		t.Errorf("metadata = %q, want session=abc", e.Metadata)
	}
	if e.ID == "" {
		t.Error("entry ID should be set")
	}
	if e.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_EmptyIP(t *testing.T) {
	repo := &mockEventRepo{}
	logger := NewLogger(repo, slog.New(slog.DiscardHandler))

	logger.LogEvent(context.Background(), "user-1", ActionLogout, "", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if ip := repo.entries[0].IP; ip != "unknown" {
		t.Errorf("ip = %q, want unknown", ip)
	}
}

func TestLogger_LogEvent_RepoError(t *testing.T) {
	repo := &mockEventRepo{createErr: errors.New("db down")}
	logger := NewLogger(repo, slog.New(slog.DiscardHandler))

	// Must not panic or surface the error.
	logger.LogEvent(context.Background(), "user-1", ActionLoginFailure, "10.0.0.1", "")

	if len(repo.entries) != 0 {
		t.Errorf("expected no entries, got %d", len(repo.entries))
	}
}

func TestLogger_NilRepo(t *testing.T) {
	logger := NewLogger(nil, slog.New(slog.DiscardHandler))
	logger.LogEvent(context.Background(), "user-1", ActionLogout, "", "")
}
