package repository

import (
	"context"
	"time"

	"blog-server/internal/domain"
)

// SessionRepository defines persistence operations for the session store.
// Sessions are keyed by the hash of their token; the plaintext token is
// never persisted.
type SessionRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, session *domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// DeleteByTokenHash removes the session if present; deleting an absent
	// session is a no-op, not an error.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByAccount(ctx context.Context, accountID int64) error
	// DeleteExpired removes sessions that expired before the given instant
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
