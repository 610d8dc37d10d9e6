package domain

import "time"

// Account represents a registered identity capable of authenticating.
// PasswordHash holds an opaque, self-describing hash record and must never
// leave the service layer; handlers only ever see sanitized copies.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
