package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xlink-api/internal/application/otp"
	"github.com/xlink-api/internal/pkg/validate"
)

// OTPHandler handles the passwordless login flow.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler {
	return &OTPHandler{svc: svc}
}

type requestCodeRequest struct {
	Phone string `json:"phone" validate:"required,irphone"`
	// FullName marks the signup flow; empty means login against an existing account.
	FullName string `json:"full_name"`
}

type verifyCodeRequest struct {
	Phone string `json:"phone" validate:"required,irphone"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Next  string `json:"next"`
}

// Request handles POST /auth/otp/request.
func (h *OTPHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.svc.RequestCode(r.Context(), req.Phone, req.FullName)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Verify handles POST /auth/otp/verify.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.svc.VerifyCode(r.Context(), req.Phone, req.Code)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Bearer:       result.Bearer,
		RefreshToken: result.RefreshToken,
		Session:      result.Session,
		Next:         safeNext(req.Next),
	})
}

// safeNext accepts only same-site relative paths as post-login redirect
// targets. Anything with a scheme, host or protocol-relative prefix is
// dropped.
func safeNext(next string) string {
	if next == "" {
		return ""
	}
	if !strings.HasPrefix(next, "/") {
		return ""
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
