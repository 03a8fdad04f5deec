package domain

import "time"

type User struct {
	UserID           string     `json:"id" dynamodbav:"user_id"`
	Name             string     `json:"name" dynamodbav:"name"`
	Username         string     `json:"username" dynamodbav:"username"`
	Email            string     `json:"email" dynamodbav:"email"`
	MobileNo         string     `json:"mobile_no" dynamodbav:"mobile_no"`
	PasswordHash     string     `json:"-" dynamodbav:"password_hash"`
	Role             string     `json:"role" dynamodbav:"role"`
	EmailVerifiedAt  *time.Time `json:"email_verified_at" dynamodbav:"email_verified_at"`
	MobileVerifiedAt *time.Time `json:"mobile_verified_at" dynamodbav:"mobile_verified_at"`
	CreatedAt        time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" dynamodbav:"updated_at"`
}

// FullyVerified reports whether both the email and mobile channels were confirmed.
func (u *User) FullyVerified() bool {
	return u.EmailVerifiedAt != nil && u.MobileVerifiedAt != nil
}

type RegisterRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Mobile          string `json:"mobile" validate:"required,mobile"`
	Password        string `json:"password" validate:"required,min=8,maxbytes=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,min=8,eqfield=Password"`
}
