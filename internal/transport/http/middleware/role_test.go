package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/otp-identity-api/internal/domain"
	jwtinfra "github.com/otp-identity-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		claims   *jwtinfra.Claims
		allowed  []string
		wantCode int
		wantErr  string
	}{
		{name: "no claims", allowed: []string{domain.RoleAdmin}, wantCode: http.StatusUnauthorized, wantErr: "UNAUTHORIZED"},
		{name: "user on admin route", claims: &jwtinfra.Claims{Role: domain.RoleUser}, allowed: []string{domain.RoleAdmin}, wantCode: http.StatusForbidden, wantErr: "FORBIDDEN"},
		{name: "admin on admin route", claims: &jwtinfra.Claims{Role: domain.RoleAdmin}, allowed: []string{domain.RoleAdmin}, wantCode: http.StatusOK},
		{name: "any of several roles", claims: &jwtinfra.Claims{Role: domain.RoleUser}, allowed: []string{domain.RoleAdmin, domain.RoleUser}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			rr := httptest.NewRecorder()
			RequireRole(tt.allowed...)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			if tt.wantErr == "" {
				return
			}
			var body errorEnvelope
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantErr, body.ErrorCode)
		})
	}
}
