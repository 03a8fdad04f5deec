package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/otp-identity-api/internal/domain"
	jwtinfra "github.com/otp-identity-api/internal/infrastructure/jwt"
)

type contextKey string

const claimsKey contextKey = "claims"

type TokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// SessionChecker rejects tokens whose backing session was logged out or revoked.
type SessionChecker interface {
	Active(ctx context.Context, sessionID string) error
}

// Auth returns middleware that validates the Bearer JWT, checks that its
// session is still active and injects the claims into the context.
func Auth(verifier TokenVerifier, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.")
				return
			}
			claims, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.")
				return
			}
			if err := sessions.Active(r.Context(), claims.SessionID); err != nil {
				if !errors.Is(err, domain.ErrUnauthorized) {
					slog.Error("session lookup failed", "session_id", claims.SessionID, "err", err)
					writeJSONError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong.")
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
