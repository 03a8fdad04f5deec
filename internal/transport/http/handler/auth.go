package handler

import (
	"net/http"

	"github.com/otp-identity-api/internal/application/auth"
	"github.com/otp-identity-api/internal/domain"
	"github.com/otp-identity-api/internal/transport/http/middleware"
)

// AuthHandler exposes registration, OTP login, password recovery and session endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	codes, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, codes.Message, codes)
}

func (h *AuthHandler) ResendRegistrationOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.MobileRequest
	if !decode(w, r, &req) {
		return
	}
	codes, err := h.svc.ResendRegistrationOTP(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, codes.Message, codes)
}

func (h *AuthHandler) VerifyRegistrationOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyRegistrationRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyRegistrationOTP(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, "OTP verified successfully. Verification completed.", res)
}

func (h *AuthHandler) LoginOTPSend(w http.ResponseWriter, r *http.Request) {
	var req auth.MobileRequest
	if !decode(w, r, &req) {
		return
	}
	codes, err := h.svc.LoginOTPSend(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, codes.Message, codes)
}

func (h *AuthHandler) VerifyLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyLoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyLoginOTP(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, "User Logged-in successfully.", res)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.MobileRequest
	if !decode(w, r, &req) {
		return
	}
	codes, err := h.svc.ForgotPassword(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, codes.Message, codes)
}

func (h *AuthHandler) VerifyForgotPasswordOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	tok, err := h.svc.VerifyForgotPasswordOTP(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, "OTP verified successfully.", tok)
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.UpdatePassword(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, "Your password successfully changed. Please login using new password.", nil)
}

func (h *AuthHandler) LoginUsingEmail(w http.ResponseWriter, r *http.Request) {
	var req auth.EmailLoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.LoginUsingEmail(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, "User Logged-in successfully.", res)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.")
		return
	}
	if err := h.svc.Logout(r.Context(), claims.SessionID); err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, "Successfully logged out", nil)
}

func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.")
		return
	}
	u, err := h.svc.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, "User fetched", u)
}
