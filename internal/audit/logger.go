// Package audit records an audit trail of authentication actions.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"user-auth-service/internal/audit/domain"
	auditrepo "user-auth-service/internal/audit/repository"
)

// Actions recorded by the auth service.
const (
	ActionUserRegistered = "user_registered"
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
	ActionLogout         = "logout"
	ActionSessionEvicted = "session_evicted"
)

// Recorder writes a single auth event. LogEvent is best-effort: failures are
// logged and do not affect the caller.
type Recorder interface {
	LogEvent(ctx context.Context, userID, action, ip, metadata string)
}

// Logger implements Recorder using the audit repository.
type Logger struct {
	repo auditrepo.Repository
	log  *slog.Logger
}

// NewLogger returns a Recorder that persists to repo. log may be nil; then
// slog.Default is used for write failures.
func NewLogger(repo auditrepo.Repository, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{repo: repo, log: log}
}

// LogEvent writes one auth event. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, ip, metadata string) {
	if l.repo == nil {
		return
	}
	if ip == "" {
		ip = "unknown"
	}
	e := &domain.AuthEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, e); err != nil {
		l.log.ErrorContext(ctx, "audit write failed", "action", action, "err", err)
	}
}
