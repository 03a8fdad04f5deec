package jwtinfra

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/otp-identity-api/internal/config"
)

const issuer = "otp-identity-api"

// Claims is the access token payload. SessionID ties the token to a
// persisted session so logout can revoke it before it expires.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 access tokens.
type Provider struct {
	signKey   *rsa.PrivateKey
	verifyKey *rsa.PublicKey
	ttl       time.Duration
	now       func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	p := &Provider{ttl: cfg.JWTExpiry, now: time.Now}
	var err error
	if p.signKey, err = loadKey(cfg.JWTPrivateKeyPath, "private", jwt.ParseRSAPrivateKeyFromPEM); err != nil {
		return nil, err
	}
	if p.verifyKey, err = loadKey(cfg.JWTPublicKeyPath, "public", jwt.ParseRSAPublicKeyFromPEM); err != nil {
		return nil, err
	}
	return p, nil
}

func loadKey[K any](path, kind string, parse func([]byte) (K, error)) (K, error) {
	var zero K
	raw, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("read %s key: %w", kind, err)
	}
	key, err := parse(raw)
	if err != nil {
		return zero, fmt.Errorf("parse %s key: %w", kind, err)
	}
	return key, nil
}

// Expiry is the lifetime given to every signed token.
func (p *Provider) Expiry() time.Duration { return p.ttl }

func (p *Provider) Sign(userID, role, sessionID string) (string, error) {
	now := p.now()
	return jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}).SignedString(p.signKey)
}

// Verify parses tokenStr and checks its signature, issuer and expiry.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return p.verifyKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
