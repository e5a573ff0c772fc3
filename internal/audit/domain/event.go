package domain

import "time"

// AuthEvent is one audit trail entry for an authentication action
// (registration, login, logout, eviction).
type AuthEvent struct {
	ID        string
	UserID    string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
