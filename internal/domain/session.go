package domain

import "time"

// Session binds an opaque client token to an Account for a bounded time.
// Only a keyed hash of the token is persisted; the plaintext token exists
// in transit and in the client's cookie, nowhere else.
type Session struct {
	ID          string
	AccountID   int64
	TokenHash   string
	RotatedFrom string // id of the session replaced at login, empty otherwise
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session has passed its fixed expiry at the
// given instant. Expiry is checked lazily at resolution time; nothing ever
// extends it.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
