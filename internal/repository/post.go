package repository

import (
	"context"

	"blog-server/internal/domain"
)

// PostRepository exposes persistence operations for Post aggregates.
// Deleting a post cascades to its comments and tags.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Update(ctx context.Context, post *domain.Post) error
	Get(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context) ([]domain.Post, error)
	ListByTag(ctx context.Context, tag string) ([]domain.Post, error)
	Delete(ctx context.Context, id int64) error
}

// CommentRepository manages comment rows. Authorship maps onto a nullable
// account reference plus a legacy name column; the repository converts
// between that layout and the domain union.
type CommentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, comment *domain.Comment) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error)
}
