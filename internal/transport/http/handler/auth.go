package handler

import (
	"errors"
	"net/http"

	"github.com/neuroscan-api/internal/application/auth"
	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/pkg/validate"
)

// AuthHandler serves registration, OTP verification, login and password reset.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !h.bind(w, r, &req) {
		return
	}
	regID, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, PendingEnvelope{
		Message: "Please check your email for OTP to verify your account.",
		UserID:  regID,
	})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if !h.bind(w, r, &req) {
		return
	}
	sess, err := h.svc.VerifySignup(r.Context(), req.UserID, req.OTP)
	if err != nil {
		httpError(w, err, messages{domain.ErrNotFound: "Registration data expired or not found"})
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Message: "Account verified successfully",
		Token:   sess.Token,
		User:    toUserView(sess.Account),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !h.bind(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var unverified *domain.UnverifiedError
		if errors.As(err, &unverified) {
			writeJSON(w, http.StatusForbidden, UnverifiedEnvelope{Error: "Account not verified", UserID: unverified.AccountID})
			return
		}
		httpError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Message: "Login successful",
		Token:   sess.Token,
		User:    toUserView(sess.Account),
	})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if !h.bind(w, r, &req) {
		return
	}
	accountID, err := h.svc.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		httpError(w, err, messages{
			domain.ErrNotFound: "User not found",
			domain.ErrUpstream: "Failed to send password reset email. Please try again.",
		})
		return
	}
	writeJSON(w, http.StatusOK, PendingEnvelope{Message: "Password reset OTP sent", UserID: accountID})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !h.bind(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.UserID, req.OTP, req.NewPassword); err != nil {
		httpError(w, err, messages{domain.ErrNotFound: "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Password reset successful"})
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendOTPRequest
	if !h.bind(w, r, &req) {
		return
	}
	email, err := h.svc.ResendOTP(r.Context(), req.UserID, req.Type)
	if err != nil {
		httpError(w, err, messages{
			domain.ErrNotFound:   "User not found",
			domain.ErrBadRequest: "Invalid OTP type. Use signup or reset",
		})
		return
	}
	writeJSON(w, http.StatusOK, ResendEnvelope{Message: "OTP sent successfully", Email: email})
}

// bind decodes and validates the body, writing the error response itself.
func (h *AuthHandler) bind(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeBody(r, dst); err != nil {
		writeDecodeError(w, err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
