package repository

import (
	"context"
	"time"
)

// Ledger tracks revoked token jtis. A structurally valid, unexpired token
// whose jti appears here must be rejected. Expired-token entries are
// harmless garbage; the codec already rejects those tokens.
type Ledger interface {
	// Revoke records the jti. Revoking an already-revoked jti is not an error.
	Revoke(ctx context.Context, jti, userID string, at time.Time) error
	// IsRevoked reports whether the jti has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
