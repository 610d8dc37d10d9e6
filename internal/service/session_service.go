package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

// DefaultSessionTTL is the fixed session lifetime used when none is
// configured: two weeks.
const DefaultSessionTTL = 14 * 24 * time.Hour

const tokenBytes = 32

// SessionService manages the session lifecycle: creation on successful
// authentication, per-request resolution to an Identity, and revocation.
// Expiry is fixed at creation and checked lazily at resolution.
type SessionService interface {
	// Create issues a fresh unguessable token bound to the account and
	// returns the plaintext token, the only time it exists server-side.
	Create(ctx context.Context, accountID int64) (string, error)
	// Rotate issues a fresh token and revokes priorToken if it named a
	// live session, recording that session as the rotated-from origin.
	// Logins go through here so a pre-existing token is never reused.
	Rotate(ctx context.Context, accountID int64, priorToken string) (string, error)
	// Resolve maps a token to an Identity. Absent, expired, revoked, or
	// unknown tokens resolve to Anonymous; only storage failure is an
	// error.
	Resolve(ctx context.Context, token string) (domain.Identity, error)
	// Revoke invalidates the token. Idempotent; revoking an absent or
	// already-revoked token is a no-op.
	Revoke(ctx context.Context, token string) error
	// PurgeExpired reclaims storage held by expired sessions and returns
	// how many rows were removed. Resolution already rejects expired
	// tokens, so this is not semantically load-bearing.
	PurgeExpired(ctx context.Context) (int64, error)
}

type sessionService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	secret   []byte
	ttl      time.Duration
}

// NewSessionService builds a session service. The secret keys the hashing
// of tokens at rest; ttl <= 0 falls back to DefaultSessionTTL.
func NewSessionService(sessions repository.SessionRepository, users repository.UserRepository, secret string, ttl time.Duration) SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessionService{
		sessions: sessions,
		users:    users,
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

func (s *sessionService) Create(ctx context.Context, accountID int64) (string, error) {
	return s.create(ctx, accountID, "")
}

func (s *sessionService) Rotate(ctx context.Context, accountID int64, priorToken string) (string, error) {
	var rotatedFrom string
	if priorToken != "" {
		prior, err := s.sessions.GetByTokenHash(ctx, s.hashToken(priorToken))
		switch {
		case err == nil:
			rotatedFrom = prior.ID
			if err := s.sessions.DeleteByTokenHash(ctx, prior.TokenHash); err != nil {
				return "", fmt.Errorf("revoke prior session: %w", err)
			}
		case errors.Is(err, domain.ErrNotFound):
			// prior token already dead, nothing to revoke
		default:
			return "", fmt.Errorf("look up prior session: %w", err)
		}
	}
	return s.create(ctx, accountID, rotatedFrom)
}

func (s *sessionService) create(ctx context.Context, accountID int64, rotatedFrom string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		TokenHash:   s.hashToken(token),
		RotatedFrom: rotatedFrom,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func (s *sessionService) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Anonymous(), nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, s.hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Anonymous(), nil
		}
		return domain.Anonymous(), fmt.Errorf("resolve session: %w", err)
	}
	if session.Expired(time.Now().UTC()) {
		return domain.Anonymous(), nil
	}

	account, err := s.users.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Anonymous(), nil
		}
		return domain.Anonymous(), fmt.Errorf("resolve session account: %w", err)
	}
	if !account.Active {
		return domain.Anonymous(), nil
	}

	return domain.Authenticated(account.ID, account.Username), nil
}

func (s *sessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByTokenHash(ctx, s.hashToken(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *sessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, time.Now().UTC())
}

// hashToken computes the at-rest form of a token: HMAC-SHA256 under the
// configured secret, so a leaked session table does not yield usable
// credentials.
func (s *sessionService) hashToken(token string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
