package domain

import "time"

type KYCDocType string

const (
	KYCAadhaar KYCDocType = "aadhaar"
	KYCPAN     KYCDocType = "pan"
)

// KYCDocument records the submitted identity document of a user.
// PK: user_id, SK: doc_type.
type KYCDocument struct {
	UserID    string     `json:"user_id" dynamodbav:"user_id"`
	DocType   KYCDocType `json:"doc_type" dynamodbav:"doc_type"`
	Number    string     `json:"number" dynamodbav:"number"`
	ImageKeys []string   `json:"image_keys" dynamodbav:"image_keys"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time  `json:"updated" dynamodbav:"updated_at"`
}
