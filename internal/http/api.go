package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blog-server/internal/domain"
	"blog-server/internal/service"
)

// identityKey is the gin context key the guard middleware stores the
// resolved Identity under. Handlers read it once and pass the value
// explicitly into services; nothing below the handler layer touches
// request state.
const identityKey = "identity"

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth     service.AuthService
	sessions service.SessionService
	posts    service.PostService
	comments service.CommentService

	cookieName   string
	cookieMaxAge int
	secureCookie bool
	logger       *logrus.Logger
}

type Config struct {
	CookieName   string
	SessionTTL   time.Duration
	SecureCookie bool
	Logger       *logrus.Logger
}

func NewHandler(auth service.AuthService, sessions service.SessionService, posts service.PostService, comments service.CommentService, cfg Config) *Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "blog_session"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = service.DefaultSessionTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Handler{
		auth:         auth,
		sessions:     sessions,
		posts:        posts,
		comments:     comments,
		cookieName:   cfg.CookieName,
		cookieMaxAge: int(cfg.SessionTTL.Seconds()),
		secureCookie: cfg.SecureCookie,
		logger:       cfg.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	api.Use(h.resolveIdentity())
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.POST("/auth/logout", h.logout)
		api.GET("/auth/me", h.me)
		api.DELETE("/auth/account", h.deleteAccount)

		api.GET("/posts", h.listPosts)
		api.POST("/posts", h.createPost)
		api.GET("/posts/:id", h.getPost)
		api.PUT("/posts/:id", h.updatePost)
		api.DELETE("/posts/:id", h.deletePost)
		api.POST("/posts/:id/comments", h.createComment)

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// resolveIdentity is the authentication guard: it maps the session cookie
// (present or not) to an Identity. Anonymous is the normal outcome for a
// missing or dead token and never aborts the request; only a session store
// failure does.
func (h *Handler) resolveIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(h.cookieName)
		identity, err := h.sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			h.logger.WithError(err).Error("resolve session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session store unavailable"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(domain.Identity); ok {
			return identity
		}
	}
	return domain.Anonymous()
}

type registerRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	priorToken, _ := c.Cookie(h.cookieName)
	account, token, err := h.auth.Register(c.Request.Context(), req.Username, req.Password, req.PasswordConfirm, priorToken)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusCreated, accountToResponse(account))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	priorToken, _ := c.Cookie(h.cookieName)
	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password, priorToken)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.Status(http.StatusNoContent)
}

func (h *Handler) logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookieName)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.writeError(c, err)
		return
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	identity := identityFrom(c)
	accountID, ok := identity.Account()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"account_id":    accountID,
		"username":      identity.Username(),
	})
}

func (h *Handler) deleteAccount(c *gin.Context) {
	identity := identityFrom(c)
	accountID, ok := identity.Account()
	if !ok {
		h.writeError(c, service.ErrAuthRequired)
		return
	}

	if err := h.auth.DeleteAccount(c.Request.Context(), accountID); err != nil {
		h.writeError(c, err)
		return
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

type postRequest struct {
	Title string   `json:"title" binding:"required"`
	Body  string   `json:"body" binding:"required"`
	Tags  []string `json:"tags"`
}

type commentRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *Handler) listPosts(c *gin.Context) {
	posts, err := h.posts.List(c.Request.Context(), c.Query("tag"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(&posts[i], nil)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createPost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and body are required"})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), identityFrom(c), req.Title, req.Body, req.Tags)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, postToResponse(post, nil))
}

func (h *Handler) getPost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	post, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	comments, err := h.comments.ListForPost(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(post, comments))
}

func (h *Handler) updatePost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and body are required"})
		return
	}

	post, err := h.posts.Update(c.Request.Context(), identityFrom(c), id, req.Title, req.Body, req.Tags)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(post, nil))
}

func (h *Handler) deletePost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.posts.Delete(c.Request.Context(), identityFrom(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createComment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment body is required"})
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), identityFrom(c), id, req.Body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         comment.ID,
		"post_id":    comment.PostID,
		"body":       comment.Body,
		"created_at": comment.CreatedAt.Format(time.RFC3339),
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return 0, false
	}
	return id, true
}

// writeError maps the error taxonomy onto status codes. Infrastructure
// failure stays a 500 and is never downgraded to an authentication
// failure.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// The session cookie resists script access (HttpOnly) and cross-site
// submission (SameSite=Strict).
func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookieName, token, h.cookieMaxAge, "/", "", h.secureCookie, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secureCookie, true)
}

type PostResponse struct {
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Tags      []string          `json:"tags"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
	Comments  []CommentResponse `json:"comments,omitempty"`
}

type CommentResponse struct {
	ID        int64  `json:"id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

type AccountResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

func accountToResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID,
		Username:  account.Username,
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
	}
}

func postToResponse(post *domain.Post, comments []service.CommentView) PostResponse {
	resp := PostResponse{
		ID:        post.ID,
		Title:     post.Title,
		Body:      post.Body,
		Tags:      post.Tags,
		CreatedAt: post.CreatedAt.Format(time.RFC3339),
		UpdatedAt: post.UpdatedAt.Format(time.RFC3339),
	}
	if post.Tags == nil {
		resp.Tags = []string{}
	}
	for _, comment := range comments {
		resp.Comments = append(resp.Comments, CommentResponse{
			ID:        comment.ID,
			Author:    comment.Author,
			Body:      comment.Body,
			CreatedAt: comment.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}
