package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrValidation   = errors.New("validation failed")
)

// Verification errors. Their text is shown to the caller as-is.
var (
	ErrExpiredCode       = errors.New("OTP expired. Please resend OTP.")
	ErrCodeMismatch      = errors.New("OTP invalid. Please resend OTP.")
	ErrUnverifiedAccount = errors.New("Please verify your mobile number and email address.")

	ErrInvalidMobileCode = NewError(ErrCodeMismatch, "Mobile OTP invalid. Please resend OTP.")
	ErrInvalidEmailCode  = NewError(ErrCodeMismatch, "Email OTP invalid. Please resend OTP.")
	ErrCodeReissued      = NewError(ErrConflict, "OTP was reissued while verifying. Please retry with the latest OTP.")
	ErrUnknownMobile     = NewError(ErrNotFound, "The selected mobile is invalid.")
	ErrBadCredentials    = NewError(ErrUnauthorized, "Please check your password.")
	ErrEmailTaken        = NewError(ErrValidation, "The email has already been taken.")
	ErrMobileTaken       = NewError(ErrValidation, "The mobile has already been taken.")
)

// kindError carries a caller-facing message while still matching a broader
// category through errors.Is.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// NewError returns an error with a caller-facing message that matches kind.
func NewError(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

// Message returns the caller-facing text carried by err, or "" when err
// carries none and the caller should fall back to a generic message.
func Message(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	for _, s := range []error{ErrExpiredCode, ErrCodeMismatch, ErrUnverifiedAccount} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return ""
}
