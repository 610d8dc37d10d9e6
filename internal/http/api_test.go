package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "blog-server/internal/http"
	"blog-server/internal/repository/sqlite"
	"blog-server/internal/service"
)

const cookieName = "blog_session"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	comments := sqlite.NewCommentRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)

	ctx := context.Background()
	require.NoError(t, users.Init(ctx))
	require.NoError(t, posts.Init(ctx))
	require.NoError(t, comments.Init(ctx))
	require.NoError(t, sessionRepo.Init(ctx))

	sessions := service.NewSessionService(sessionRepo, users, "test-secret", 0)
	logger := logrus.New()

	handler := apphttp.NewHandler(
		service.NewAuthService(users, sessions),
		sessions,
		service.NewPostService(posts),
		service.NewCommentService(comments, posts, users),
		apphttp.Config{CookieName: cookieName, Logger: logger},
	)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func register(t *testing.T, router *gin.Engine, username, pass string) *http.Cookie {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/auth/register", gin.H{
		"username":         username,
		"password":         pass,
		"password_confirm": pass,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthFlow(t *testing.T) {
	t.Run("register issues a guarded session cookie", func(t *testing.T) {
		router := newTestRouter(t)
		cookie := register(t, router, "alice", "Secr3t!pass")

		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		assert.NotEmpty(t, cookie.Value)

		w := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["authenticated"])
		assert.Equal(t, "alice", body["username"])
	})

	t.Run("failed login is generic and does not kill an existing session", func(t *testing.T) {
		router := newTestRouter(t)
		s1 := register(t, router, "alice", "Secr3t!pass")

		w := doJSON(t, router, http.MethodPost, "/api/auth/login", gin.H{
			"username": "alice",
			"password": "wrongpass",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid credentials", decodeBody(t, w)["error"])

		// S1 still resolves
		w = doJSON(t, router, http.MethodGet, "/api/auth/me", nil, s1)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["authenticated"])
	})

	t.Run("login rotates the presented token", func(t *testing.T) {
		router := newTestRouter(t)
		s1 := register(t, router, "alice", "Secr3t!pass")

		w := doJSON(t, router, http.MethodPost, "/api/auth/login", gin.H{
			"username": "alice",
			"password": "Secr3t!pass",
		}, s1)
		require.Equal(t, http.StatusNoContent, w.Code)
		s2 := sessionCookie(t, w)
		assert.NotEqual(t, s1.Value, s2.Value)

		// the old token is dead, the new one lives
		w = doJSON(t, router, http.MethodGet, "/api/auth/me", nil, s1)
		assert.Equal(t, false, decodeBody(t, w)["authenticated"])
		w = doJSON(t, router, http.MethodGet, "/api/auth/me", nil, s2)
		assert.Equal(t, true, decodeBody(t, w)["authenticated"])
	})

	t.Run("logout is idempotent and anonymizes the token", func(t *testing.T) {
		router := newTestRouter(t)
		cookie := register(t, router, "alice", "Secr3t!pass")

		w := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, cookie)
		require.Equal(t, http.StatusNoContent, w.Code)
		w = doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, cookie)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/auth/me", nil, cookie)
		assert.Equal(t, false, decodeBody(t, w)["authenticated"])
	})

	t.Run("policy violations come back as field errors", func(t *testing.T) {
		router := newTestRouter(t)
		w := doJSON(t, router, http.MethodPost, "/api/auth/register", gin.H{
			"username":         "bob",
			"password":         "12345678",
			"password_confirm": "12345678",
		}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "validation failed", body["error"])
		assert.NotEmpty(t, body["fields"])
	})

	t.Run("garbage cookies resolve anonymous, not an error", func(t *testing.T) {
		router := newTestRouter(t)
		w := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, &http.Cookie{Name: cookieName, Value: "garbage"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["authenticated"])
	})
}

func TestCommentFlow(t *testing.T) {
	t.Run("anonymous comment creation is refused with no row written", func(t *testing.T) {
		router := newTestRouter(t)
		cookie := register(t, router, "alice", "Secr3t!pass")

		w := doJSON(t, router, http.MethodPost, "/api/posts", gin.H{"title": "post 42", "body": "body"}, cookie)
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, router, http.MethodPost, "/api/posts/1/comments", gin.H{"body": "hi"}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "authentication required", decodeBody(t, w)["error"])

		w = doJSON(t, router, http.MethodGet, "/api/posts/1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decodeBody(t, w)["comments"])
	})

	t.Run("account deletion leaves the comment with a placeholder author", func(t *testing.T) {
		router := newTestRouter(t)
		cookie := register(t, router, "alice", "Secr3t!pass")

		w := doJSON(t, router, http.MethodPost, "/api/posts", gin.H{"title": "post 42", "body": "body"}, cookie)
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, router, http.MethodPost, "/api/posts/1/comments", gin.H{"body": "hi"}, cookie)
		require.Equal(t, http.StatusCreated, w.Code)

		// author shows as alice while the account lives
		w = doJSON(t, router, http.MethodGet, "/api/posts/1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		comments := decodeBody(t, w)["comments"].([]any)
		require.Len(t, comments, 1)
		assert.Equal(t, "alice", comments[0].(map[string]any)["author"])

		w = doJSON(t, router, http.MethodDelete, "/api/auth/account", nil, cookie)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/posts/1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		comments = decodeBody(t, w)["comments"].([]any)
		require.Len(t, comments, 1)
		got := comments[0].(map[string]any)
		assert.Equal(t, service.DeletedAuthorName, got["author"])
		assert.Equal(t, "hi", got["body"])
	})
}

func TestPostEndpoints(t *testing.T) {
	t.Run("anonymous post writes are refused", func(t *testing.T) {
		router := newTestRouter(t)
		w := doJSON(t, router, http.MethodPost, "/api/posts", gin.H{"title": "t", "body": "b"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("posts list and filter by tag", func(t *testing.T) {
		router := newTestRouter(t)
		cookie := register(t, router, "alice", "Secr3t!pass")

		w := doJSON(t, router, http.MethodPost, "/api/posts", gin.H{"title": "tagged", "body": "b", "tags": []string{"go"}}, cookie)
		require.Equal(t, http.StatusCreated, w.Code)
		w = doJSON(t, router, http.MethodPost, "/api/posts", gin.H{"title": "plain", "body": "b"}, cookie)
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/posts", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var all []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
		assert.Len(t, all, 2)

		w = doJSON(t, router, http.MethodGet, "/api/posts?tag=go", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var tagged []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tagged))
		require.Len(t, tagged, 1)
		assert.Equal(t, "tagged", tagged[0]["title"])
	})

	t.Run("missing posts are 404", func(t *testing.T) {
		router := newTestRouter(t)
		w := doJSON(t, router, http.MethodGet, "/api/posts/404", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
