package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/otp-identity-api/internal/application/kyc"
	"github.com/otp-identity-api/internal/transport/http/middleware"
)

// multipartOverhead is the allowance for form fields and part headers on top of the image bytes.
const multipartOverhead = 1 << 20

// KYCHandler accepts identity document submissions.
type KYCHandler struct {
	svc      kyc.Service
	maxBytes int64
}

func NewKYCHandler(svc kyc.Service, maxUploadBytes int64) *KYCHandler {
	return &KYCHandler{svc: svc, maxBytes: maxUploadBytes}
}

func (h *KYCHandler) SaveAadhaar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.")
		return
	}
	if !h.parse(w, r, 2) {
		return
	}
	req := kyc.AadhaarRequest{AadhaarNo: r.FormValue("aadhar_no")}
	if !check(w, &req) {
		return
	}
	front, err := h.image(r, "aadhar_photo_front")
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart form")
		return
	}
	back, err := h.image(r, "aadhar_photo_back")
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart form")
		return
	}
	if err := h.svc.SaveAadhaar(r.Context(), claims.UserID, req.AadhaarNo, front, back); err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, "Aadhar Card details successfully submitted.", nil)
}

func (h *KYCHandler) SavePAN(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.")
		return
	}
	if !h.parse(w, r, 1) {
		return
	}
	req := kyc.PANRequest{PANNo: r.FormValue("pan_no")}
	if !check(w, &req) {
		return
	}
	img, err := h.image(r, "pan_image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart form")
		return
	}
	if err := h.svc.SavePAN(r.Context(), claims.UserID, req.PANNo, img); err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, "PAN Card details successfully submitted.", nil)
}

func (h *KYCHandler) Documents(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.")
		return
	}
	docs, err := h.svc.Documents(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, "KYC documents fetched", docs)
}

func (h *KYCHandler) parse(w http.ResponseWriter, r *http.Request, files int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, files*(h.maxBytes+1)+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "The uploaded files are too large.")
			return false
		}
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart form")
		return false
	}
	return true
}

// image reads one uploaded file. A missing part yields an empty Image so the
// service can report the field as required. At most maxBytes+1 bytes are
// read, which is enough for the service to detect an oversized file.
func (h *KYCHandler) image(r *http.Request, field string) (kyc.Image, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return kyc.Image{Field: field}, nil
	}
	if err != nil {
		return kyc.Image{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		return kyc.Image{}, err
	}
	return kyc.Image{Field: field, Data: data}, nil
}
