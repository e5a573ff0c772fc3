package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"user-auth-service/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, email, mobile_number, password_hash, created_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByIdentifier returns the user whose username, email, or mobile number
// equals identifier, or nil if none matches. The three columns are unique,
// so at most one row can match.
func (r *PostgresRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE username = $1 OR email = $1 OR mobile_number = $1`, identifier)
	return scanUser(row)
}

// Create persists the user to the database. The user must have ID set; it is
// not assigned by this method. Unique-constraint violations are returned as
// *domain.DuplicateError naming the conflicting field.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, mobile_number, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.MobileNumber, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if d, ok := duplicateField(err); ok {
			return d
		}
		return err
	}
	return nil
}

// duplicateField maps a Postgres unique violation to the conflicting column
// by constraint name (users_username_unique etc.).
func duplicateField(err error) (*domain.DuplicateError, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil, false
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return &domain.DuplicateError{Field: "username"}, true
	case strings.Contains(pgErr.ConstraintName, "email"):
		return &domain.DuplicateError{Field: "email"}, true
	case strings.Contains(pgErr.ConstraintName, "mobile"):
		return &domain.DuplicateError{Field: "mobile_number"}, true
	default:
		return &domain.DuplicateError{}, true
	}
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.MobileNumber, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
