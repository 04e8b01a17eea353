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
	ErrInvalidCode  = errors.New("invalid code")
	ErrExpired      = errors.New("expired")
	ErrUpstream     = errors.New("upstream failure")
	ErrUnavailable  = errors.New("unavailable")
)

// UnverifiedError is returned by login when the credentials match an account
// that has not completed email verification. AccountID lets the client resume.
type UnverifiedError struct {
	AccountID string
}

func (e *UnverifiedError) Error() string { return "account not verified" }

func (e *UnverifiedError) Unwrap() error { return ErrForbidden }
