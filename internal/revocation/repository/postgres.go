package repository

import (
	"context"
	"database/sql"
	"time"
)

type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger returns a revocation ledger backed by the given db.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Revoke inserts the jti. ON CONFLICT DO NOTHING makes a repeat revocation a
// no-op, keeping logout idempotent.
func (l *PostgresLedger) Revoke(ctx context.Context, jti, userID string, at time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, user_id, revoked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (jti) DO NOTHING`,
		jti, userID, at)
	return err
}

// IsRevoked reports whether the jti is present in the ledger.
func (l *PostgresLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
