package http

import (
	"context"
	"time"

	"github.com/otp-identity-api/internal/application/auth"
	"github.com/otp-identity-api/internal/application/kyc"
	"github.com/otp-identity-api/internal/application/session"
	"github.com/otp-identity-api/internal/application/verification"
	"github.com/otp-identity-api/internal/domain"
	jwtinfra "github.com/otp-identity-api/internal/infrastructure/jwt"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	auth.UserStore
	// ScanPage returns users holding the "user" role, optionally filtered by search.
	ScanPage(ctx context.Context, limit int32, cursor, search string) ([]domain.User, string, error)
}

// TokenProvider signs and verifies bearer tokens.
type TokenProvider interface {
	Sign(userID, role, sessionID string) (string, error)
	Verify(tokenStr string) (*jwtinfra.Claims, error)
	Expiry() time.Duration
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo          UserRepository
	SessionRepo       session.SessionStore
	VerificationRepo  verification.Store
	PasswordResetRepo auth.PasswordResetStore
	KYCRepo           kyc.DocumentStore
	ObjectStore       kyc.ObjectStore
	Notifier          verification.Notifier
	CodeGenerator     verification.CodeGenerator
	JWTProvider       TokenProvider
}
