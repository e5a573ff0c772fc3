package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failure reasons. Revocation is not checked here; the auth
// service layers that on top.
var (
	// ErrTokenMalformed is returned when a token cannot be parsed or its
	// claims do not match this codec's issuer/audience.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenBadSignature is returned when the signature does not verify.
	ErrTokenBadSignature = errors.New("token signature invalid")
	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the verified content of a token. The jti doubles as the session
// id: each session holds exactly one token for its lifetime.
type Claims struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 JWTs bound to a session. The signing
// secret is injected at construction; there is no ambient key material.
type TokenCodec struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenCodec returns a TokenCodec signing with secret. issuer and audience
// are set on claims and checked on verification. ttl is the token lifetime.
func NewTokenCodec(secret []byte, issuer, audience string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
	}
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for the given user and session. The jti claim is the
// session id, so revoking the session id invalidates the token. now is
// explicit so issuance is deterministic under test.
func (c *TokenCodec) Issue(userID, sessionID string, now time.Time) (token string, expiresAt time.Time, err error) {
	now = now.UTC()
	expiresAt = now.Add(c.ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify parses and checks the token structurally: signature, expiry, issuer,
// audience. It never consults the session registry or the revocation ledger.
// now is the verification instant; pass time.Now().UTC() outside tests.
func (c *TokenCodec) Verify(tokenString string, now time.Time) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenBadSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	out := &Claims{
		UserID:    claims.Subject,
		SessionID: claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// NewSessionID returns a cryptographically random opaque id (32 hex chars).
// Session ids and token jtis are the same value.
func NewSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
