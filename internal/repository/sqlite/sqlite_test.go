package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

type repos struct {
	db       *sql.DB
	users    repository.UserRepository
	sessions repository.SessionRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
}

func openTestRepos(t *testing.T) *repos {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := &repos{
		db:       db,
		users:    NewUserRepository(db),
		sessions: NewSessionRepository(db),
		posts:    NewPostRepository(db),
		comments: NewCommentRepository(db),
	}

	ctx := context.Background()
	require.NoError(t, r.users.Init(ctx))
	require.NoError(t, r.posts.Init(ctx))
	require.NoError(t, r.comments.Init(ctx))
	require.NoError(t, r.sessions.Init(ctx))
	return r
}

func (r *repos) createAccount(t *testing.T, username string) *domain.Account {
	t.Helper()
	account := &domain.Account{Username: username, PasswordHash: "x", Active: true}
	_, err := r.users.Create(context.Background(), account)
	require.NoError(t, err)
	return account
}

func (r *repos) createPost(t *testing.T, title string) *domain.Post {
	t.Helper()
	post := &domain.Post{Title: title, Body: "body"}
	_, err := r.posts.Create(context.Background(), post)
	require.NoError(t, err)
	return post
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate username hits the uniqueness constraint", func(t *testing.T) {
		r := openTestRepos(t)
		r.createAccount(t, "alice")

		_, err := r.users.Create(ctx, &domain.Account{Username: "alice", PasswordHash: "y", Active: true})
		assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	})

	t.Run("username lookup is case-sensitive", func(t *testing.T) {
		r := openTestRepos(t)
		r.createAccount(t, "Alice")

		_, err := r.users.GetByUsername(ctx, "alice")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		account, err := r.users.GetByUsername(ctx, "Alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice", account.Username)
	})

	t.Run("unknown account resolves to not found", func(t *testing.T) {
		r := openTestRepos(t)
		_, err := r.users.GetByID(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, r.users.Delete(ctx, 9999), domain.ErrNotFound)
	})

	t.Run("delete clears comment authorship and drops sessions", func(t *testing.T) {
		r := openTestRepos(t)
		account := r.createAccount(t, "alice")
		post := r.createPost(t, "first")

		comment := &domain.Comment{PostID: post.ID, Body: "hi", Author: domain.LinkedAuthorship(account.ID)}
		_, err := r.comments.Create(ctx, comment)
		require.NoError(t, err)

		session := &domain.Session{
			ID:        "s1",
			AccountID: account.ID,
			TokenHash: "h1",
			CreatedAt: time.Now().UTC(),
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}
		require.NoError(t, r.sessions.Create(ctx, session))

		require.NoError(t, r.users.Delete(ctx, account.ID))

		// comment survives, ownership does not
		got, err := r.comments.Get(ctx, comment.ID)
		require.NoError(t, err)
		assert.True(t, got.Author.Orphaned())
		assert.Equal(t, "hi", got.Body)

		_, err = r.sessions.GetByTokenHash(ctx, "h1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = r.users.GetByID(ctx, account.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete leaves other accounts' comments linked", func(t *testing.T) {
		r := openTestRepos(t)
		alice := r.createAccount(t, "alice")
		bob := r.createAccount(t, "bob")
		post := r.createPost(t, "first")

		aliceComment := &domain.Comment{PostID: post.ID, Body: "from alice", Author: domain.LinkedAuthorship(alice.ID)}
		bobComment := &domain.Comment{PostID: post.ID, Body: "from bob", Author: domain.LinkedAuthorship(bob.ID)}
		_, err := r.comments.Create(ctx, aliceComment)
		require.NoError(t, err)
		_, err = r.comments.Create(ctx, bobComment)
		require.NoError(t, err)

		require.NoError(t, r.users.Delete(ctx, alice.ID))

		got, err := r.comments.Get(ctx, bobComment.ID)
		require.NoError(t, err)
		id, ok := got.Author.Linked()
		assert.True(t, ok)
		assert.Equal(t, bob.ID, id)
	})
}

func TestPostRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting a post cascades to its comments only", func(t *testing.T) {
		r := openTestRepos(t)
		account := r.createAccount(t, "alice")
		first := r.createPost(t, "first")
		second := r.createPost(t, "second")

		c1 := &domain.Comment{PostID: first.ID, Body: "c1", Author: domain.LinkedAuthorship(account.ID)}
		c2 := &domain.Comment{PostID: second.ID, Body: "c2", Author: domain.LinkedAuthorship(account.ID)}
		_, err := r.comments.Create(ctx, c1)
		require.NoError(t, err)
		_, err = r.comments.Create(ctx, c2)
		require.NoError(t, err)

		require.NoError(t, r.posts.Delete(ctx, first.ID))

		_, err = r.comments.Get(ctx, c1.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		got, err := r.comments.Get(ctx, c2.ID)
		require.NoError(t, err)
		assert.Equal(t, "c2", got.Body)
	})

	t.Run("tags round trip and filter", func(t *testing.T) {
		r := openTestRepos(t)
		tagged := &domain.Post{Title: "tagged", Body: "body", Tags: []string{"go", "sqlite"}}
		_, err := r.posts.Create(ctx, tagged)
		require.NoError(t, err)
		r.createPost(t, "untagged")

		got, err := r.posts.Get(ctx, tagged.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "sqlite"}, got.Tags)

		byTag, err := r.posts.ListByTag(ctx, "go")
		require.NoError(t, err)
		require.Len(t, byTag, 1)
		assert.Equal(t, tagged.ID, byTag[0].ID)

		all, err := r.posts.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("update replaces fields and tags", func(t *testing.T) {
		r := openTestRepos(t)
		post := &domain.Post{Title: "before", Body: "body", Tags: []string{"old"}}
		_, err := r.posts.Create(ctx, post)
		require.NoError(t, err)

		post.Title = "after"
		post.Tags = []string{"new"}
		require.NoError(t, r.posts.Update(ctx, post))

		got, err := r.posts.Get(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "after", got.Title)
		assert.Equal(t, []string{"new"}, got.Tags)
		assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
	})

	t.Run("updating a missing post is not found", func(t *testing.T) {
		r := openTestRepos(t)
		err := r.posts.Update(ctx, &domain.Post{ID: 404, Title: "t", Body: "b"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCommentRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("legacy rows keep their free-text author", func(t *testing.T) {
		r := openTestRepos(t)
		post := r.createPost(t, "historical")

		comment := &domain.Comment{PostID: post.ID, Body: "from the old days", Author: domain.LegacyAuthorship("greybeard")}
		_, err := r.comments.Create(ctx, comment)
		require.NoError(t, err)

		got, err := r.comments.Get(ctx, comment.ID)
		require.NoError(t, err)
		name, ok := got.Author.Legacy()
		assert.True(t, ok)
		assert.Equal(t, "greybeard", name)
	})

	t.Run("insert against a missing post fails the foreign key", func(t *testing.T) {
		r := openTestRepos(t)
		comment := &domain.Comment{PostID: 404, Body: "hi", Author: domain.LegacyAuthorship("ghost")}
		_, err := r.comments.Create(ctx, comment)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("insert against a deleted account fails the foreign key", func(t *testing.T) {
		r := openTestRepos(t)
		account := r.createAccount(t, "fleeting")
		post := r.createPost(t, "p")
		require.NoError(t, r.users.Delete(ctx, account.ID))

		comment := &domain.Comment{PostID: post.ID, Body: "too late", Author: domain.LinkedAuthorship(account.ID)}
		_, err := r.comments.Create(ctx, comment)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("list is ordered oldest first", func(t *testing.T) {
		r := openTestRepos(t)
		post := r.createPost(t, "p")
		for _, body := range []string{"one", "two", "three"} {
			_, err := r.comments.Create(ctx, &domain.Comment{PostID: post.ID, Body: body, Author: domain.LegacyAuthorship("x")})
			require.NoError(t, err)
		}

		comments, err := r.comments.ListByPost(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, comments, 3)
		assert.Equal(t, "one", comments[0].Body)
		assert.Equal(t, "three", comments[2].Body)
	})
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("delete expired removes only expired rows", func(t *testing.T) {
		r := openTestRepos(t)
		account := r.createAccount(t, "alice")
		now := time.Now().UTC()

		live := &domain.Session{ID: "live", AccountID: account.ID, TokenHash: "h-live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
		dead := &domain.Session{ID: "dead", AccountID: account.ID, TokenHash: "h-dead", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
		require.NoError(t, r.sessions.Create(ctx, live))
		require.NoError(t, r.sessions.Create(ctx, dead))

		purged, err := r.sessions.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)

		_, err = r.sessions.GetByTokenHash(ctx, "h-live")
		assert.NoError(t, err)
		_, err = r.sessions.GetByTokenHash(ctx, "h-dead")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete by token hash is idempotent", func(t *testing.T) {
		r := openTestRepos(t)
		assert.NoError(t, r.sessions.DeleteByTokenHash(ctx, "never-existed"))
		assert.NoError(t, r.sessions.DeleteByTokenHash(ctx, "never-existed"))
	})

	t.Run("rotated-from marker round trips", func(t *testing.T) {
		r := openTestRepos(t)
		account := r.createAccount(t, "alice")
		now := time.Now().UTC()

		session := &domain.Session{ID: "s2", AccountID: account.ID, TokenHash: "h2", RotatedFrom: "s1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, r.sessions.Create(ctx, session))

		got, err := r.sessions.GetByTokenHash(ctx, "h2")
		require.NoError(t, err)
		assert.Equal(t, "s1", got.RotatedFrom)
	})
}
