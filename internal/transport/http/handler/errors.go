package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/neuroscan-api/internal/domain"
)

type errorRule struct {
	target error
	status int
	msg    string
}

// errorRules maps domain sentinels to a status and the default client message.
// Order matters: the first rule matching errors.Is wins.
var errorRules = []errorRule{
	{domain.ErrInvalidCode, http.StatusBadRequest, "Invalid OTP"},
	{domain.ErrExpired, http.StatusBadRequest, "OTP expired"},
	{domain.ErrBadRequest, http.StatusBadRequest, "Missing required fields"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "Invalid credentials"},
	{domain.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{domain.ErrNotFound, http.StatusNotFound, "Not found"},
	{domain.ErrConflict, http.StatusConflict, "User already exists"},
	{domain.ErrUpstream, http.StatusInternalServerError, "Failed to send verification email. Please try again."},
	{domain.ErrUnavailable, http.StatusServiceUnavailable, "Service unavailable"},
}

// messages overrides the default client message per sentinel for one endpoint.
type messages map[error]string

// httpError writes the status mapped from err. Unknown errors are logged and
// reported as a generic 500.
func httpError(w http.ResponseWriter, err error, overrides messages) {
	for _, rule := range errorRules {
		if !errors.Is(err, rule.target) {
			continue
		}
		msg := rule.msg
		if m, ok := overrides[rule.target]; ok {
			msg = m
		}
		writeError(w, rule.status, msg)
		return
	}
	slog.Error("unhandled request error", "err", err)
	if m, ok := overrides[nil]; ok {
		writeError(w, http.StatusInternalServerError, m)
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
