package domain

import "time"

// Purpose names the flow a verification record was issued for.
type Purpose string

const (
	PurposeRegistration  Purpose = "registration"
	PurposeLogin         Purpose = "login"
	PurposePasswordReset Purpose = "password_reset"
)

// VerificationRecord is the single pending OTP state for a user.
// PK: user_id. Every issuance replaces the previous record and rotates Nonce.
// TTL is a Unix timestamp used as DynamoDB TTL and lags ExpireAt so that
// expired records stay observable.
type VerificationRecord struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Purpose   Purpose   `json:"purpose" dynamodbav:"purpose"`
	Nonce     string    `json:"-" dynamodbav:"nonce"`
	MobileOTP *string   `json:"mobile_otp,omitempty" dynamodbav:"mobile_otp,omitempty"`
	EmailOTP  *string   `json:"email_otp,omitempty" dynamodbav:"email_otp,omitempty"`
	ExpireAt  time.Time `json:"expire_at" dynamodbav:"expire_at"`
	TTL       int64     `json:"-" dynamodbav:"ttl"`
}

// Expired reports whether now is past the record's expiry.
func (v *VerificationRecord) Expired(now time.Time) bool {
	return now.After(v.ExpireAt)
}

// ConsumeEffects lists the writes committed in the same transaction that
// deletes a verified record.
type ConsumeEffects struct {
	MarkEmailVerified  bool
	MarkMobileVerified bool
	VerifiedAt         time.Time
	PasswordReset      *PasswordReset
}
