package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"blog-server/internal/domain"
	"blog-server/internal/password"
	"blog-server/internal/repository"
)

// ErrInvalidCredentials indicates that provided login credentials are
// incorrect. Deliberately generic: callers never learn whether the
// username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// MaxUsernameLength bounds the username column.
const MaxUsernameLength = 30

var usernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// AuthService covers the account lifecycle: registration, login, logout,
// and account deletion. Every successful registration or login issues a
// fresh session token; pre-existing tokens are never promoted.
type AuthService interface {
	// Register creates an account and logs it in. priorToken is whatever
	// token the client presented, revoked as part of rotation.
	Register(ctx context.Context, username, plaintext, confirm, priorToken string) (*domain.Account, string, error)
	// Login verifies credentials and issues a fresh token. Failures are
	// uniformly ErrInvalidCredentials.
	Login(ctx context.Context, username, plaintext, priorToken string) (string, error)
	// Logout revokes the token; idempotent.
	Logout(ctx context.Context, token string) error
	// DeleteAccount removes the account; comments it authored survive
	// with their linked reference cleared.
	DeleteAccount(ctx context.Context, accountID int64) error
}

type authService struct {
	users    repository.UserRepository
	sessions SessionService
}

func NewAuthService(users repository.UserRepository, sessions SessionService) AuthService {
	return &authService{users: users, sessions: sessions}
}

func (s *authService) Register(ctx context.Context, username, plaintext, confirm, priorToken string) (*domain.Account, string, error) {
	username = strings.TrimSpace(username)

	verr := &domain.ValidationError{}
	switch {
	case username == "":
		verr.Add("username", "username is required")
	case len(username) > MaxUsernameLength:
		verr.Add("username", fmt.Sprintf("username must be at most %d characters", MaxUsernameLength))
	case !usernameRegexp.MatchString(username):
		verr.Add("username", "username may contain only letters, digits, dots, dashes, and underscores")
	}
	if plaintext == "" {
		verr.Add("password", "password is required")
	} else {
		for _, problem := range password.Validate(plaintext, username) {
			verr.Add("password", problem)
		}
	}
	if plaintext != confirm {
		verr.Add("password_confirm", "passwords do not match")
	}
	if verr.HasErrors() {
		return nil, "", verr
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		Username:     username,
		PasswordHash: hash,
		Active:       true,
	}
	if _, err := s.users.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			taken := &domain.ValidationError{}
			taken.Add("username", "username is already taken")
			return nil, "", taken
		}
		return nil, "", err
	}

	token, err := s.sessions.Rotate(ctx, account.ID, priorToken)
	if err != nil {
		return nil, "", err
	}
	return sanitizeAccount(account), token, nil
}

func (s *authService) Login(ctx context.Context, username, plaintext, priorToken string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || plaintext == "" {
		return "", ErrInvalidCredentials
	}

	account, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Burn the same hashing cost as a real verification so an
			// unknown username is not distinguishable by response time.
			password.Verify(plaintext, denyRecord())
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !password.Verify(plaintext, account.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	if !account.Active {
		return "", ErrInvalidCredentials
	}

	return s.sessions.Rotate(ctx, account.ID, priorToken)
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func (s *authService) DeleteAccount(ctx context.Context, accountID int64) error {
	return s.users.Delete(ctx, accountID)
}

var (
	denyOnce sync.Once
	denyHash string
)

// denyRecord returns a throwaway hash record used to equalize the timing
// of login failures for unknown usernames.
func denyRecord() string {
	denyOnce.Do(func() {
		denyHash, _ = password.Hash("!unknown-user-timing-equalizer")
	})
	return denyHash
}

func sanitizeAccount(account *domain.Account) *domain.Account {
	if account == nil {
		return nil
	}
	return &domain.Account{
		ID:        account.ID,
		Username:  account.Username,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}
