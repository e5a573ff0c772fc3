package domain

import (
	"errors"
	"time"
)

// User is the core user entity. Username, email, and mobile number are each
// globally unique; login accepts any of the three as the identifier.
type User struct {
	ID           string
	Username     string
	Email        string
	MobileNumber string
	PasswordHash string
	CreatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.MobileNumber == "" {
		return errors.New("mobile number is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}

// DuplicateError reports a uniqueness violation on create, naming the
// conflicting column so register can tell the caller which field collided.
type DuplicateError struct {
	Field string // "username", "email", or "mobile_number"
}

func (e *DuplicateError) Error() string {
	switch e.Field {
	case "username":
		return "username already registered"
	case "email":
		return "email already registered"
	case "mobile_number":
		return "mobile number already registered"
	default:
		return "identity already registered"
	}
}

// IsDuplicate reports whether err is a DuplicateError and returns it.
func IsDuplicate(err error) (*DuplicateError, bool) {
	var d *DuplicateError
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
