package service

import (
	"context"
	"fmt"
	"strings"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

// MaxTitleLength bounds the post title column.
const MaxTitleLength = 255

// PostService coordinates post level operations. Posts gate comment
// lifecycle: deleting a post takes its comments with it.
type PostService interface {
	Create(ctx context.Context, identity domain.Identity, title, body string, tags []string) (*domain.Post, error)
	Get(ctx context.Context, id int64) (*domain.Post, error)
	// List returns all posts, or only those carrying the tag when one is
	// given, newest first.
	List(ctx context.Context, tag string) ([]domain.Post, error)
	Update(ctx context.Context, identity domain.Identity, id int64, title, body string, tags []string) (*domain.Post, error)
	Delete(ctx context.Context, identity domain.Identity, id int64) error
}

type postService struct {
	posts repository.PostRepository
}

func NewPostService(posts repository.PostRepository) PostService {
	return &postService{posts: posts}
}

func (s *postService) Create(ctx context.Context, identity domain.Identity, title, body string, tags []string) (*domain.Post, error) {
	if identity.IsAnonymous() {
		return nil, ErrAuthRequired
	}
	title, body, tags, err := validatePostInput(title, body, tags)
	if err != nil {
		return nil, err
	}

	post := &domain.Post{
		Title: title,
		Body:  body,
		Tags:  tags,
	}
	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, id int64) (*domain.Post, error) {
	return s.posts.Get(ctx, id)
}

func (s *postService) List(ctx context.Context, tag string) ([]domain.Post, error) {
	tag = normalizeTag(tag)
	if tag != "" {
		return s.posts.ListByTag(ctx, tag)
	}
	return s.posts.List(ctx)
}

func (s *postService) Update(ctx context.Context, identity domain.Identity, id int64, title, body string, tags []string) (*domain.Post, error) {
	if identity.IsAnonymous() {
		return nil, ErrAuthRequired
	}
	title, body, tags, err := validatePostInput(title, body, tags)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Title = title
	post.Body = body
	post.Tags = tags

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Delete(ctx context.Context, identity domain.Identity, id int64) error {
	if identity.IsAnonymous() {
		return ErrAuthRequired
	}
	return s.posts.Delete(ctx, id)
}

func validatePostInput(title, body string, tags []string) (string, string, []string, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)

	verr := &domain.ValidationError{}
	switch {
	case title == "":
		verr.Add("title", "title is required")
	case len(title) > MaxTitleLength:
		verr.Add("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if body == "" {
		verr.Add("body", "body is required")
	}
	if verr.HasErrors() {
		return "", "", nil, verr
	}

	return title, body, normalizeTags(tags), nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, tag := range tags {
		tag = normalizeTag(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
