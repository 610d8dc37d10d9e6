package domain

import "time"

// Post is the aggregate a comment belongs to. Deleting a post removes its
// comments (cascade policy); deleting a commenter's account does not (see
// Authorship).
type Post struct {
	ID        int64
	Title     string
	Body      string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
	Comments  []Comment
}

// Comment carries body text attached to exactly one post, plus one of the
// two authorship representations.
type Comment struct {
	ID        int64
	PostID    int64
	Body      string
	Author    Authorship
	CreatedAt time.Time
}
