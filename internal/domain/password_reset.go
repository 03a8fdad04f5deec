package domain

import "time"

// PasswordReset is the single-use exchange token minted after a successful
// forgot-password verification. Only the SHA-256 of the token is stored.
// PK: user_id, GSI: token_hash-index.
type PasswordReset struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	TokenHash string    `json:"-" dynamodbav:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	TTL       int64     `json:"-" dynamodbav:"ttl"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

type UpdatePasswordRequest struct {
	TempToken       string `json:"temp_token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,maxbytes=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,min=8,eqfield=Password"`
}
