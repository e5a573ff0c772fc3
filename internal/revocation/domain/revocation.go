package domain

import "time"

// RevokedToken records an explicitly invalidated jti. Rows are never updated;
// once the underlying token's expiry passes the row is dead weight and may be
// garbage-collected out of band.
type RevokedToken struct {
	JTI       string
	UserID    string
	RevokedAt time.Time
}
