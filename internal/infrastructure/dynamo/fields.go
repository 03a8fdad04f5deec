package dynamo

// Attribute names shared by keys, indexes and expressions.
const (
	fieldUserID           = "user_id"
	fieldEmail            = "email"
	fieldMobileNo         = "mobile_no"
	fieldName             = "name"
	fieldRole             = "role"
	fieldEnable           = "enable"
	fieldNonce            = "nonce"
	fieldTokenHash        = "token_hash"
	fieldPasswordHash     = "password_hash"
	fieldEmailVerifiedAt  = "email_verified_at"
	fieldMobileVerifiedAt = "mobile_verified_at"
	fieldUpdatedAt        = "updated_at"
	fieldUniqueKey        = "unique_key"
	fieldSessionID        = "session_id"
	fieldDocType          = "doc_type"
)
