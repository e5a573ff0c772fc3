// Package auth orchestrates registration, login, logout, and token
// verification over the credential store, session registry, revocation
// ledger, and token codec.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"user-auth-service/internal/audit"
	revocation "user-auth-service/internal/revocation/repository"
	"user-auth-service/internal/security"
	sessiondomain "user-auth-service/internal/session/domain"
	"user-auth-service/internal/session/registry"
	userdomain "user-auth-service/internal/user/domain"
)

// Sentinel errors for the auth service; the HTTP layer maps them to status codes.
var (
	// ErrInvalidCredentials is returned for both unknown identifiers and
	// wrong passwords so login never discloses whether an account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenRevoked is returned when a structurally valid token's session
	// has been logged out or evicted.
	ErrTokenRevoked = errors.New("token revoked")
)

// UserRepo is the minimal credential store needed by the auth service.
type UserRepo interface {
	GetByIdentifier(ctx context.Context, identifier string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// AuthResult holds the outcome of Register or Login: a freshly minted token
// bound to a new session, plus the public user record.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	ExpiresIn time.Duration
	SessionID string
	User      *userdomain.User
}

// VerifyResult identifies the caller of a verified request.
type VerifyResult struct {
	UserID    string
	SessionID string
}

// LogoutResult confirms a logout. The same confirmation shape is returned
// whether or not the session was still active.
type LogoutResult struct {
	LoggedOutAt time.Time
}

// SessionView is an active session as shown to its owner. Current marks the
// session bound to the token the caller presented.
type SessionView struct {
	Session *sessiondomain.Session
	Current bool
}

// Service implements register, login, logout, verify, and session listing.
type Service struct {
	users    UserRepo
	sessions *registry.Registry
	ledger   revocation.Ledger
	hasher   *security.Hasher
	codec    *security.TokenCodec
	auditor  audit.Recorder
	log      *slog.Logger
	now      func() time.Time
}

// NewService returns a Service with the given dependencies. auditor may be
// nil to disable the audit trail. now is injectable for deterministic tests;
// pass nil for the real clock.
func NewService(
	users UserRepo,
	sessions *registry.Registry,
	ledger revocation.Ledger,
	hasher *security.Hasher,
	codec *security.TokenCodec,
	auditor audit.Recorder,
	log *slog.Logger,
	now func() time.Time,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		users:    users,
		sessions: sessions,
		ledger:   ledger,
		hasher:   hasher,
		codec:    codec,
		auditor:  auditor,
		log:      log,
		now:      now,
	}
}

func (s *Service) recordEvent(ctx context.Context, userID, action, ip, metadata string) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogEvent(ctx, userID, action, ip, metadata)
}

// Register creates a user and immediately starts their first session,
// returning a token: registration doubles as a first login. Input-shape
// violations are *ValidationError; uniqueness conflicts are
// *userdomain.DuplicateError naming the colliding field.
func (s *Service) Register(ctx context.Context, username, email, mobile, password, deviceInfo, ipAddress string) (*AuthResult, error) {
	username, err := validateUsername(username)
	if err != nil {
		return nil, err
	}
	email, err = validateEmail(email)
	if err != nil {
		return nil, err
	}
	mobile, err = normalizeMobile(mobile)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		MobileNumber: mobile,
		PasswordHash: hashed,
		CreatedAt:    s.now(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	s.recordEvent(ctx, user.ID, audit.ActionUserRegistered, ipAddress, "")
	return s.startSession(ctx, user, deviceInfo, ipAddress)
}

// Login authenticates the identifier (username, email, or mobile number)
// and password, then starts a session. Unknown identifier and wrong password
// are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, identifier, password, deviceInfo, ipAddress string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Burn a bcrypt comparison so this path is not cheaper than a
		// wrong-password rejection.
		_ = s.hasher.Compare(security.DummyHash, []byte(password))
		s.recordEvent(ctx, "", audit.ActionLoginFailure, ipAddress, "")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.recordEvent(ctx, user.ID, audit.ActionLoginFailure, ipAddress, "")
		return nil, ErrInvalidCredentials
	}
	res, err := s.startSession(ctx, user, deviceInfo, ipAddress)
	if err != nil {
		return nil, err
	}
	s.recordEvent(ctx, user.ID, audit.ActionLoginSuccess, ipAddress, "session="+res.SessionID)
	return res, nil
}

// startSession admits a session and mints its token. When admission evicts an
// older session, its jti is revoked here, in the same logical operation, so
// the evicted token cannot keep passing verification.
func (s *Service) startSession(ctx context.Context, user *userdomain.User, deviceInfo, ipAddress string) (*AuthResult, error) {
	sess, evicted, err := s.sessions.Admit(ctx, user.ID, deviceInfo, ipAddress)
	if err != nil {
		return nil, err
	}
	if evicted != nil {
		if err := s.ledger.Revoke(ctx, evicted.ID, evicted.UserID, s.now()); err != nil {
			return nil, err
		}
		s.log.InfoContext(ctx, "session evicted", "user_id", user.ID, "session_id", evicted.ID)
		s.recordEvent(ctx, user.ID, audit.ActionSessionEvicted, ipAddress, "session="+evicted.ID)
	}
	issuedAt := s.now()
	token, expiresAt, err := s.codec.Issue(user.ID, sess.ID, issuedAt)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "session started", "user_id", user.ID, "session_id", sess.ID)
	return &AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		ExpiresIn: expiresAt.Sub(issuedAt),
		SessionID: sess.ID,
		User:      user,
	}, nil
}

// Logout revokes the token's jti and deactivates its session. A structurally
// invalid token is rejected with the codec's reason; an already-logged-out
// token gets the same confirmation again with no further state change.
func (s *Service) Logout(ctx context.Context, tokenString string) (*LogoutResult, error) {
	claims, err := s.codec.Verify(tokenString, s.now())
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.ledger.Revoke(ctx, claims.SessionID, claims.UserID, now); err != nil {
		return nil, err
	}
	if err := s.sessions.Deactivate(ctx, claims.SessionID); err != nil && !errors.Is(err, registry.ErrNotFound) {
		return nil, err
	}
	s.log.InfoContext(ctx, "logged out", "user_id", claims.UserID, "session_id", claims.SessionID)
	s.recordEvent(ctx, claims.UserID, audit.ActionLogout, "", "session="+claims.SessionID)
	return &LogoutResult{LoggedOutAt: now}, nil
}

// Verify checks the token structurally, then against the revocation ledger,
// then touches the session. A missing or inactive session means it was
// evicted or logged out, so it reports ErrTokenRevoked.
func (s *Service) Verify(ctx context.Context, tokenString string) (*VerifyResult, error) {
	claims, err := s.codec.Verify(tokenString, s.now())
	if err != nil {
		return nil, err
	}
	revoked, err := s.ledger.IsRevoked(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	if err := s.sessions.Touch(ctx, claims.SessionID); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, err
	}
	return &VerifyResult{UserID: claims.UserID, SessionID: claims.SessionID}, nil
}

// ListSessions verifies the token and returns the owner's active sessions in
// created_at order, marking the one bound to the presented token.
func (s *Service) ListSessions(ctx context.Context, tokenString string) ([]SessionView, error) {
	res, err := s.Verify(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	active, err := s.sessions.ListActive(ctx, res.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionView, len(active))
	for i, sess := range active {
		out[i] = SessionView{Session: sess, Current: sess.ID == res.SessionID}
	}
	return out, nil
}
