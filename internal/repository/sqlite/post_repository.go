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

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS post_tags (
	post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	tag TEXT NOT NULL,
	PRIMARY KEY (post_id, tag)
);
`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts tables: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin post create: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO posts (title, body, created_at, updated_at)
VALUES (?, ?, ?, ?)`,
		post.Title,
		post.Body,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}

	if err := insertTags(ctx, tx, id, post.Tags); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit post create: %w", err)
	}
	post.ID = id
	return id, nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin post update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE posts SET title = ?, body = ?, updated_at = ? WHERE id = ?`,
		post.Title,
		post.Body,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update post rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update post %d: %w", post.ID, domain.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, post.ID); err != nil {
		return fmt.Errorf("clear post tags: %w", err)
	}
	if err := insertTags(ctx, tx, post.ID, post.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit post update: %w", err)
	}
	return nil
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, body, created_at, updated_at
FROM posts
WHERE id = ?`,
		id,
	)

	var post domain.Post
	if err := row.Scan(&post.ID, &post.Title, &post.Body, &post.CreatedAt, &post.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}

	tags, err := r.tagsForPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	post.Tags = tags
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, body, created_at, updated_at
FROM posts
ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	return r.collectPosts(ctx, rows)
}

func (r *PostRepository) ListByTag(ctx context.Context, tag string) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT p.id, p.title, p.body, p.created_at, p.updated_at
FROM posts p
JOIN post_tags t ON t.post_id = p.id
WHERE t.tag = ?
ORDER BY p.created_at DESC, p.id DESC`,
		tag,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts by tag: %w", err)
	}
	defer rows.Close()

	return r.collectPosts(ctx, rows)
}

// Delete removes the post; comments and tags go with it via the declared
// cascade policy.
func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete post %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PostRepository) collectPosts(ctx context.Context, rows *sql.Rows) ([]domain.Post, error) {
	var posts []domain.Post
	for rows.Next() {
		var post domain.Post
		if err := rows.Scan(&post.ID, &post.Title, &post.Body, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	for i := range posts {
		tags, err := r.tagsForPost(ctx, posts[i].ID)
		if err != nil {
			return nil, err
		}
		posts[i].Tags = tags
	}
	return posts, nil
}

func (r *PostRepository) tagsForPost(ctx context.Context, postID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT tag FROM post_tags WHERE post_id = ? ORDER BY tag`, postID)
	if err != nil {
		return nil, fmt.Errorf("list post tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan post tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post tags: %w", err)
	}
	return tags, nil
}

func insertTags(ctx context.Context, tx *sql.Tx, postID int64, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO post_tags (post_id, tag) VALUES (?, ?)`, postID, tag); err != nil {
			return fmt.Errorf("insert post tag %q: %w", tag, err)
		}
	}
	return nil
}
