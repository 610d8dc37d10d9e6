package repository

import (
	"context"

	"blog-server/internal/domain"
)

// UserRepository defines persistence operations for accounts (the
// credential store).
type UserRepository interface {
	Init(ctx context.Context) error
	// Create inserts the account and returns domain.ErrUsernameTaken when
	// the username uniqueness constraint rejects it.
	Create(ctx context.Context, account *domain.Account) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	// Delete removes the account, its sessions, and clears the linked
	// reference on every comment it authored, in a single transaction.
	// The comments themselves survive (set-null policy).
	Delete(ctx context.Context, id int64) error
}
