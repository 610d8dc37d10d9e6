package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	token_hash TEXT NOT NULL UNIQUE,
	account_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	rotated_from TEXT,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions(account_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	var rotatedFrom any
	if session.RotatedFrom != "" {
		rotatedFrom = session.RotatedFrom
	}

	if _, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, token_hash, account_id, rotated_from, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.TokenHash,
		session.AccountID,
		rotatedFrom,
		session.CreatedAt,
		session.ExpiresAt,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, token_hash, account_id, rotated_from, created_at, expires_at
FROM sessions
WHERE token_hash = ?`,
		tokenHash,
	)

	var (
		session     domain.Session
		rotatedFrom sql.NullString
	)
	if err := row.Scan(
		&session.ID,
		&session.TokenHash,
		&session.AccountID,
		&rotatedFrom,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if rotatedFrom.Valid {
		session.RotatedFrom = rotatedFrom.String
	}
	return &session, nil
}

func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx, `
DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteByAccount(ctx context.Context, accountID int64) error {
	if _, err := r.db.ExecContext(ctx, `
DELETE FROM sessions WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("delete account sessions: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM sessions WHERE expires_at <= ?`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	return affected, nil
}
