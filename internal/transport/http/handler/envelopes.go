package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/otp-identity-api/internal/domain"
	"github.com/otp-identity-api/internal/pkg/validate"
)

// Envelope is the response wrapper shared by every endpoint.
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	ErrorCode string      `json:"error_code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, msg string, data interface{}) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: msg, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, Envelope{Message: msg, ErrorCode: code})
}

type errorMapping struct {
	target error
	status int
	code   string
	msg    string
}

// Order matters: the more specific code-mismatch sentinels precede their kind.
var errorMappings = []errorMapping{
	{domain.ErrInvalidMobileCode, http.StatusBadRequest, "INVALID_MOBILE_CODE", ""},
	{domain.ErrInvalidEmailCode, http.StatusBadRequest, "INVALID_EMAIL_CODE", ""},
	{domain.ErrCodeMismatch, http.StatusBadRequest, "CODE_MISMATCH", ""},
	{domain.ErrExpiredCode, http.StatusGone, "EXPIRED_CODE", ""},
	{domain.ErrUnverifiedAccount, http.StatusForbidden, "UNVERIFIED_ACCOUNT", ""},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "The given data was invalid."},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found."},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated."},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "You are not allowed to access this resource."},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT", "The request conflicts with the current state."},
	{domain.ErrBadRequest, http.StatusBadRequest, "BAD_REQUEST", "Bad request."},
}

// httpError converts a service error into a failed envelope. Only
// caller-facing messages are exposed; anything else is logged and reported
// as an internal error.
func httpError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := domain.Message(err)
			if msg == "" {
				msg = m.msg
			}
			writeError(w, m.status, m.code, msg)
			return
		}
	}
	slog.Error("request failed", "err", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong. Please try again later.")
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return false
	}
	return check(w, dst)
}

func check(w http.ResponseWriter, v interface{}) bool {
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return false
	}
	return true
}
