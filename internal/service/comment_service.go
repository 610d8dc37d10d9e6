package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

// ErrAuthRequired signals that an anonymous identity attempted a write
// that requires an account. Distinct from validation failure.
var ErrAuthRequired = errors.New("authentication required")

// DeletedAuthorName is rendered for comments whose linked account no
// longer exists; a comment's author line must never be an empty string.
const DeletedAuthorName = "deleted user"

// CommentView is a comment with its authorship resolved to a display name.
type CommentView struct {
	ID        int64
	PostID    int64
	Author    string
	Body      string
	CreatedAt time.Time
}

// CommentService decides at write time how a comment records its author
// and at read time which name to show. New comments are always
// account-linked; legacy free-text authorship exists only on historical
// rows.
type CommentService interface {
	// Create attaches a comment to the post under the given identity.
	// Anonymous identities are refused with ErrAuthRequired.
	Create(ctx context.Context, identity domain.Identity, postID int64, body string) (*domain.Comment, error)
	// ListForPost returns the post's comments with display names
	// resolved: linked authors by current username, vanished authors as
	// DeletedAuthorName, legacy rows by their stored name.
	ListForPost(ctx context.Context, postID int64) ([]CommentView, error)
}

type commentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, users repository.UserRepository) CommentService {
	return &commentService{
		comments: comments,
		posts:    posts,
		users:    users,
	}
}

func (s *commentService) Create(ctx context.Context, identity domain.Identity, postID int64, body string) (*domain.Comment, error) {
	accountID, ok := identity.Account()
	if !ok {
		return nil, ErrAuthRequired
	}

	body = strings.TrimSpace(body)
	if body == "" {
		verr := &domain.ValidationError{}
		verr.Add("body", "comment body is required")
		return nil, verr
	}

	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		PostID: postID,
		Body:   body,
		Author: domain.LinkedAuthorship(accountID),
	}
	if _, err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentService) ListForPost(ctx context.Context, postID int64) ([]CommentView, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, len(comments))
	for i, comment := range comments {
		name, err := s.displayName(ctx, comment.Author)
		if err != nil {
			return nil, err
		}
		views[i] = CommentView{
			ID:        comment.ID,
			PostID:    comment.PostID,
			Author:    name,
			Body:      comment.Body,
			CreatedAt: comment.CreatedAt,
		}
	}
	return views, nil
}

func (s *commentService) displayName(ctx context.Context, author domain.Authorship) (string, error) {
	if accountID, ok := author.Linked(); ok {
		account, err := s.users.GetByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return DeletedAuthorName, nil
			}
			return "", err
		}
		return account.Username, nil
	}
	if name, ok := author.Legacy(); ok {
		return name, nil
	}
	return DeletedAuthorName, nil
}
