package domain

import "time"

// Purpose tags what a one-time code proves. It also tells which store the
// code's SubjectID points into: registrations for signup, accounts for reset.
type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeReset  Purpose = "reset"
)

func (p Purpose) Valid() bool {
	return p == PurposeSignup || p == PurposeReset
}

// OneTimeCode is a six-digit code bound to a subject and purpose.
// ExpiresAt is a Unix timestamp used only as DynamoDB TTL; validity is decided
// from CreatedAt at verification time.
type OneTimeCode struct {
	CodeID    string    `json:"id" dynamodbav:"otp_id"`
	SubjectID string    `json:"subjectId" dynamodbav:"subject_id"`
	Code      string    `json:"-" dynamodbav:"code"`
	Purpose   Purpose   `json:"purpose" dynamodbav:"purpose"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at,unixtime"`
	ExpiresAt int64     `json:"-" dynamodbav:"expires_at"`
}

type VerifyOTPRequest struct {
	UserID string `json:"userId" validate:"required"`
	OTP    string `json:"otp" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type ResetPasswordRequest struct {
	UserID      string `json:"userId" validate:"required"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,max=72"`
}

type ResendOTPRequest struct {
	UserID string  `json:"userId" validate:"required"`
	Type   Purpose `json:"type"`
}
