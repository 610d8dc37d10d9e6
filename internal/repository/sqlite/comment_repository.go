package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

// Deletion policies, declared on the schema so they hold even for writes
// racing an account or post deletion: a comment follows its post
// (CASCADE) but survives its author (SET NULL).
const createCommentsTable = `
CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	author_account_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
	author_name TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
CREATE INDEX IF NOT EXISTS idx_comments_author ON comments(author_account_id);
`

type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCommentsTable); err != nil {
		return fmt.Errorf("create comments table: %w", err)
	}
	return nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (int64, error) {
	comment.CreatedAt = time.Now().UTC()

	var accountID any
	var authorName string
	if id, ok := comment.Author.Linked(); ok {
		accountID = id
	} else if name, ok := comment.Author.Legacy(); ok {
		authorName = name
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO comments (post_id, author_account_id, author_name, body, created_at)
VALUES (?, ?, ?, ?, ?)`,
		comment.PostID,
		accountID,
		authorName,
		comment.Body,
		comment.CreatedAt,
	)
	if err != nil {
		// A failed FOREIGN KEY check means the post or the linked account
		// vanished between resolution and insert.
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			return 0, fmt.Errorf("insert comment: %w", domain.ErrNotFound)
		}
		return 0, fmt.Errorf("insert comment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("comment last insert id: %w", err)
	}
	comment.ID = id
	return id, nil
}

func (r *CommentRepository) Get(ctx context.Context, id int64) (*domain.Comment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, post_id, author_account_id, author_name, body, created_at
FROM comments
WHERE id = ?`,
		id,
	)
	return scanComment(row)
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, post_id, author_account_id, author_name, body, created_at
FROM comments
WHERE post_id = ?
ORDER BY created_at ASC, id ASC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

func scanComment(row interface {
	Scan(dest ...any) error
}) (*domain.Comment, error) {
	var (
		comment    domain.Comment
		accountID  sql.NullInt64
		authorName string
	)
	if err := row.Scan(
		&comment.ID,
		&comment.PostID,
		&accountID,
		&authorName,
		&comment.Body,
		&comment.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("comment: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan comment: %w", err)
	}

	switch {
	case accountID.Valid:
		comment.Author = domain.LinkedAuthorship(accountID.Int64)
	case authorName != "":
		comment.Author = domain.LegacyAuthorship(authorName)
	default:
		comment.Author = domain.OrphanedAuthorship()
	}
	return &comment, nil
}
