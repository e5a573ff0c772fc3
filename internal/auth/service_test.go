package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"user-auth-service/internal/audit"
	"user-auth-service/internal/security"
	sessiondomain "user-auth-service/internal/session/domain"
	"user-auth-service/internal/session/registry"
	userdomain "user-auth-service/internal/user/domain"
)

type memUserRepo struct {
	mu sync.Mutex
	m  map[string]*userdomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{m: map[string]*userdomain.User{}}
}

func (r *memUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.m {
		if u.Username == identifier || u.Email == identifier || u.MobileNumber == identifier {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.m {
		switch {
		case existing.Username == u.Username:
			return &userdomain.DuplicateError{Field: "username"}
		case existing.Email == u.Email:
			return &userdomain.DuplicateError{Field: "email"}
		case existing.MobileNumber == u.MobileNumber:
			return &userdomain.DuplicateError{Field: "mobile_number"}
		}
	}
	r.m[u.ID] = u
	return nil
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: map[string]*sessiondomain.Session{}}
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	s2 := *s
	return &s2, nil
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.ID] = &s2
	return nil
}

func (r *memSessionRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.m {
		if s.UserID == userID && s.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) activeSorted(userID string) []*sessiondomain.Session {
	var out []*sessiondomain.Session
	for _, s := range r.m {
		if s.UserID == userID && s.IsActive {
			s2 := *s
			out = append(out, &s2)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memSessionRepo) OldestActiveByUser(ctx context.Context, userID string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := r.activeSorted(userID)
	if len(sorted) == 0 {
		return nil, nil
	}
	return sorted[0], nil
}

func (r *memSessionRepo) ListActiveByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeSorted(userID), nil
}

func (r *memSessionRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (r *memSessionRepo) Touch(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.LastActiveAt = at
	return true, nil
}

type memLedger struct {
	mu sync.Mutex
	m  map[string]time.Time
	// revokeCalls counts writes that actually inserted, for idempotency checks.
	revokeCalls int
}

func newMemLedger() *memLedger {
	return &memLedger{m: map[string]time.Time{}}
}

func (l *memLedger) Revoke(ctx context.Context, jti, userID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.m[jti]; !ok {
		l.m[jti] = at
		l.revokeCalls++
	}
	return nil
}

func (l *memLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.m[jti]
	return ok, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *memRecorder) LogEvent(ctx context.Context, userID, action, ip, metadata string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

type fixture struct {
	svc      *Service
	users    *memUserRepo
	sessions *memSessionRepo
	ledger   *memLedger
	auditor  *memRecorder
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := newMemUserRepo()
	sessions := newMemSessionRepo()
	ledger := newMemLedger()
	clock := newFakeClock()

	n := 0
	var mu sync.Mutex
	ids := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("s%02d", n), nil
	}

	reg := registry.New(sessions, 2, clock.Now, ids)
	// Low bcrypt cost keeps the test suite fast.
	hasher := security.NewHasher(4)
	codec := security.NewTokenCodec([]byte("test-secret"), "test-issuer", "test-audience", 168*time.Hour)
	auditor := &memRecorder{}
	svc := NewService(users, reg, ledger, hasher, codec, auditor, slog.New(slog.DiscardHandler), clock.Now)
	return &fixture{svc: svc, users: users, sessions: sessions, ledger: ledger, auditor: auditor, clock: clock}
}

func (f *fixture) register(t *testing.T, username string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), username, username+"@example.com", "+14155550100", "Valid1!pass", "laptop", "10.0.0.1")
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return res
}

func TestRegister_ReturnsWorkingToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, " alice ", "Alice@Example.COM", "+1 (415) 555-0100", "Valid1!pass", "laptop", "10.0.0.1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.User.Username != "alice" {
		t.Errorf("username = %q, want trimmed %q", res.User.Username, "alice")
	}
	if res.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", res.User.Email)
	}
	if res.User.MobileNumber != "+14155550100" {
		t.Errorf("mobile = %q, want separators stripped", res.User.MobileNumber)
	}
	if res.User.PasswordHash == "Valid1!pass" {
		t.Error("password stored in plaintext")
	}

	// Registration doubles as a first login: the token verifies immediately.
	v, err := f.svc.Verify(ctx, res.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if v.UserID != res.User.ID || v.SessionID != res.SessionID {
		t.Errorf("VerifyResult = %+v, want user %s session %s", v, res.User.ID, res.SessionID)
	}
}

func TestRegister_DuplicateFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	cases := []struct {
		name              string
		username, email   string
		mobile, wantField string
	}{
		{"username taken", "alice", "other@example.com", "+14155550199", "username"},
		{"email taken", "bob", "alice@example.com", "+14155550199", "email"},
		{"mobile taken", "bob", "other@example.com", "+14155550100", "mobile_number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.username, tc.email, tc.mobile, "Valid1!pass", "laptop", "10.0.0.1")
			d, ok := userdomain.IsDuplicate(err)
			if !ok {
				t.Fatalf("want DuplicateError, got %v", err)
			}
			if d.Field != tc.wantField {
				t.Errorf("field = %q, want %q", d.Field, tc.wantField)
			}
		})
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name                              string
		username, email, mobile, password string
		wantField                         string
	}{
		{"short username", "ab", "a@example.com", "+14155550100", "Valid1!pass", "username"},
		{"underscore edge", "_alice", "a@example.com", "+14155550100", "Valid1!pass", "username"},
		{"bad email", "alice", "not-an-email", "+14155550100", "Valid1!pass", "email"},
		{"bad mobile", "alice", "a@example.com", "0123", "Valid1!pass", "mobile_number"},
		{"short password", "alice", "a@example.com", "+14155550100", "V1!a", "password"},
		{"no special", "alice", "a@example.com", "+14155550100", "Valid1pass", "password"},
		{"non-ascii password", "alice", "a@example.com", "+14155550100", "Valid1!päss", "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.username, tc.email, tc.mobile, tc.password, "laptop", "10.0.0.1")
			var v *ValidationError
			if !errors.As(err, &v) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if v.Field != tc.wantField {
				t.Errorf("field = %q, want %q", v.Field, tc.wantField)
			}
		})
	}
}

func TestLogin_AllIdentifierKinds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	for _, identifier := range []string{"alice", "alice@example.com", "+14155550100"} {
		res, err := f.svc.Login(ctx, identifier, "Valid1!pass", "phone", "10.0.0.2")
		if err != nil {
			t.Fatalf("Login(%q): %v", identifier, err)
		}
		if res.User.Username != "alice" {
			t.Errorf("Login(%q) resolved user %q", identifier, res.User.Username)
		}
		// Keep the session count down for the next iteration.
		if _, err := f.svc.Logout(ctx, res.Token); err != nil {
			t.Fatalf("Logout: %v", err)
		}
	}
}

func TestLogin_UniformRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	// Unknown identifier and wrong password on a known identifier are
	// indistinguishable.
	_, errUnknown := f.svc.Login(ctx, "nobody", "Valid1!pass", "laptop", "10.0.0.1")
	_, errWrongPw := f.svc.Login(ctx, "alice", "Wrong1!pass", "laptop", "10.0.0.1")
	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Errorf("unknown identifier: got %v", errUnknown)
	}
	if !errors.Is(errWrongPw, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("rejections differ: %q vs %q", errUnknown, errWrongPw)
	}

	_, err := f.svc.Login(ctx, "", "", "laptop", "10.0.0.1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("empty inputs: got %v", err)
	}
}

func TestThirdLoginEvictsOldestAndRevokesItsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.register(t, "alice") // session A
	b, err := f.svc.Login(ctx, "alice", "Valid1!pass", "phone", "10.0.0.2") // session B
	if err != nil {
		t.Fatalf("Login B: %v", err)
	}
	c, err := f.svc.Login(ctx, "alice", "Valid1!pass", "tablet", "10.0.0.3") // session C evicts A
	if err != nil {
		t.Fatalf("Login C: %v", err)
	}

	// A's token is unexpired but must now fail as revoked.
	if _, err := f.svc.Verify(ctx, a.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("Verify A after eviction: want ErrTokenRevoked, got %v", err)
	}
	if _, err := f.svc.Verify(ctx, b.Token); err != nil {
		t.Errorf("Verify B: %v", err)
	}
	if _, err := f.svc.Verify(ctx, c.Token); err != nil {
		t.Errorf("Verify C: %v", err)
	}

	if n, _ := f.sessions.CountActiveByUser(ctx, a.User.ID); n != 2 {
		t.Errorf("active sessions = %d, want 2", n)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.register(t, "alice")

	first, err := f.svc.Logout(ctx, res.Token)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if first.LoggedOutAt.IsZero() {
		t.Error("missing logout timestamp")
	}
	writes := f.ledger.revokeCalls

	second, err := f.svc.Logout(ctx, res.Token)
	if err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if second.LoggedOutAt.IsZero() {
		t.Error("second logout missing timestamp")
	}
	if f.ledger.revokeCalls != writes {
		t.Errorf("second logout wrote to the ledger (%d -> %d)", writes, f.ledger.revokeCalls)
	}

	if _, err := f.svc.Verify(ctx, res.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("Verify after logout: want ErrTokenRevoked, got %v", err)
	}
}

func TestLogout_StructurallyInvalidToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Logout(ctx, "garbage"); !errors.Is(err, security.ErrTokenMalformed) {
		t.Errorf("want ErrTokenMalformed, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.register(t, "alice")

	f.clock.Advance(169 * time.Hour) // past the 168h TTL
	if _, err := f.svc.Verify(ctx, res.Token); !errors.Is(err, security.ErrTokenExpired) {
		t.Errorf("want ErrTokenExpired, got %v", err)
	}
}

func TestVerify_TouchesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.register(t, "alice")

	before, _ := f.sessions.GetByID(ctx, res.SessionID)
	f.clock.Advance(time.Minute)
	if _, err := f.svc.Verify(ctx, res.Token); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	after, _ := f.sessions.GetByID(ctx, res.SessionID)
	if !after.LastActiveAt.After(before.LastActiveAt) {
		t.Errorf("LastActiveAt not refreshed: %v -> %v", before.LastActiveAt, after.LastActiveAt)
	}
}

func TestListSessions_OrderAndCurrentMarker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice")
	b, err := f.svc.Login(ctx, "alice", "Valid1!pass", "phone", "10.0.0.2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	views, err := f.svc.ListSessions(ctx, b.Token)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d sessions, want 2", len(views))
	}
	if !views[0].Session.CreatedAt.Before(views[1].Session.CreatedAt) {
		t.Error("sessions not in created_at ascending order")
	}
	if views[0].Current {
		t.Error("older session marked current")
	}
	if !views[1].Current || views[1].Session.ID != b.SessionID {
		t.Errorf("caller's session not marked current: %+v", views[1])
	}
}

func TestLogoutThenListShowsOnlySurvivor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice") // A
	b, _ := f.svc.Login(ctx, "alice", "Valid1!pass", "phone", "10.0.0.2") // B
	c, _ := f.svc.Login(ctx, "alice", "Valid1!pass", "tablet", "10.0.0.3") // C evicts A

	if _, err := f.svc.Logout(ctx, b.Token); err != nil {
		t.Fatalf("Logout B: %v", err)
	}
	views, err := f.svc.ListSessions(ctx, c.Token)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(views) != 1 || views[0].Session.ID != c.SessionID {
		t.Fatalf("views = %+v, want only session %s", views, c.SessionID)
	}
	if !views[0].Current {
		t.Error("surviving session not marked current")
	}
}

func TestAuditTrailRecordsActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "alice")
	if _, err := f.svc.Login(ctx, "alice", "wrong-password", "phone", "10.0.0.2"); err == nil {
		t.Fatal("login with wrong password should fail")
	}
	b, err := f.svc.Login(ctx, "alice", "Valid1!pass", "phone", "10.0.0.2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := f.svc.Login(ctx, "alice", "Valid1!pass", "tablet", "10.0.0.3"); err != nil {
		t.Fatalf("third login: %v", err)
	}
	if _, err := f.svc.Logout(ctx, b.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	want := []string{
		audit.ActionUserRegistered,
		audit.ActionLoginFailure,
		audit.ActionLoginSuccess,
		audit.ActionSessionEvicted,
		audit.ActionLoginSuccess,
		audit.ActionLogout,
	}
	f.auditor.mu.Lock()
	got := append([]string(nil), f.auditor.actions...)
	f.auditor.mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("actions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
