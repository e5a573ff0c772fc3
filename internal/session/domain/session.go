package domain

import "time"

// Session represents one authenticated device context for a user. The id is
// an unguessable opaque string and doubles as the jti of the session's token.
// Sessions are never deleted; eviction and logout flip IsActive to false and
// the row stays behind as an audit record.
type Session struct {
	ID           string
	UserID       string
	DeviceInfo   string
	IPAddress    string
	IsActive     bool
	CreatedAt    time.Time
	LastActiveAt time.Time
}
