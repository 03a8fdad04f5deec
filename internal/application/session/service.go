package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/otp-identity-api/internal/domain"
	"github.com/otp-identity-api/internal/pkg/id"
)

// TokenType is the label returned alongside every access token.
const TokenType = "bearer"

type SessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Disable(ctx context.Context, sessionID string) error
	DisableByUser(ctx context.Context, userID string) error
}

type TokenSigner interface {
	Sign(userID, role, sessionID string) (string, error)
	Expiry() time.Duration
}

// Service mints bearer tokens backed by a persisted session so they can be revoked.
type Service interface {
	Issue(ctx context.Context, u *domain.User) (*domain.AccessToken, error)
	Active(ctx context.Context, sessionID string) error
	Revoke(ctx context.Context, sessionID string) error
	RevokeAll(ctx context.Context, userID string) error
}

type ServiceDeps struct {
	SessionRepo SessionStore
	JWTProvider TokenSigner
}

type service struct {
	sessionRepo SessionStore
	jwtProvider TokenSigner
	now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	return &service{
		sessionRepo: deps.SessionRepo,
		jwtProvider: deps.JWTProvider,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Issue(ctx context.Context, u *domain.User) (*domain.AccessToken, error) {
	now := s.now()
	ttl := s.jwtProvider.Expiry()
	sess := &domain.Session{
		SessionID: id.New(),
		UserID:    u.UserID,
		Enable:    true,
		ExpiresAt: now.Add(ttl).Unix(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.AccessToken{
		AccessToken: bearer,
		TokenType:   TokenType,
		ExpiresIn:   int64(ttl / time.Second),
	}, nil
}

// Active returns ErrUnauthorized unless the session exists, is enabled and has not expired.
func (s *service) Active(ctx context.Context, sessionID string) error {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("session not found: %w", domain.ErrUnauthorized)
		}
		return err
	}
	if !sess.Enable {
		return fmt.Errorf("session disabled: %w", domain.ErrUnauthorized)
	}
	if sess.ExpiresAt < s.now().Unix() {
		return fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	return nil
}

func (s *service) Revoke(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.Disable(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("session not found: %w", domain.ErrUnauthorized)
		}
		return err
	}
	return nil
}

func (s *service) RevokeAll(ctx context.Context, userID string) error {
	return s.sessionRepo.DisableByUser(ctx, userID)
}
