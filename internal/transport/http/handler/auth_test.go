package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neuroscan-api/internal/application/auth"
	"github.com/neuroscan-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Register(ctx context.Context, req domain.RegisterRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockAuthSvc) VerifySignup(ctx context.Context, registrationID, code string) (*auth.Session, error) {
	args := m.Called(ctx, registrationID, code)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *mockAuthSvc) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *mockAuthSvc) ForgotPassword(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockAuthSvc) ResetPassword(ctx context.Context, accountID, code, newPassword string) error {
	return m.Called(ctx, accountID, code, newPassword).Error(0)
}

func (m *mockAuthSvc) ResendOTP(ctx context.Context, subjectID string, purpose domain.Purpose) (string, error) {
	args := m.Called(ctx, subjectID, purpose)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func jsonRequest(t *testing.T, v interface{}) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

// --- tests ---

func TestRegister_Created(t *testing.T) {
	svc := new(mockAuthSvc)
	req := domain.RegisterRequest{FirstName: "Ada", LastName: "L", Email: "ada@x.io", Password: "pw"}
	svc.On("Register", mock.Anything, req).Return("reg-1", nil)

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).Register(rr, jsonRequest(t, req))

	assert.Equal(t, http.StatusCreated, rr.Code)
	body := decodeMap(t, rr)
	assert.Equal(t, "reg-1", body["userId"])
	svc.AssertExpectations(t)
}

func TestRegister_ValidationStopsBeforeService(t *testing.T) {
	svc := new(mockAuthSvc)
	rr := httptest.NewRecorder()
	NewAuthHandler(svc).Register(rr, jsonRequest(t, map[string]string{"firstName": "Ada"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeMap(t, rr)["error"], "Missing required field")
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegister_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{nope"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	NewAuthHandler(new(mockAuthSvc)).Register(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid request body", decodeMap(t, rr)["error"])
}

func TestVerifyOTP_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{fmt.Errorf("x: %w", domain.ErrInvalidCode), http.StatusBadRequest, "Invalid OTP"},
		{fmt.Errorf("x: %w", domain.ErrExpired), http.StatusBadRequest, "OTP expired"},
		{fmt.Errorf("x: %w", domain.ErrNotFound), http.StatusNotFound, "Registration data expired or not found"},
		{fmt.Errorf("x: %w", domain.ErrConflict), http.StatusConflict, "User already exists"},
		{fmt.Errorf("dynamo down"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		svc := new(mockAuthSvc)
		svc.On("VerifySignup", mock.Anything, "reg-1", "123456").Return(nil, tc.err)

		rr := httptest.NewRecorder()
		NewAuthHandler(svc).VerifyOTP(rr, jsonRequest(t, map[string]string{"userId": "reg-1", "otp": "123456"}))
		assert.Equal(t, tc.status, rr.Code, tc.msg)
		assert.Equal(t, tc.msg, decodeMap(t, rr)["error"])
	}
}

func TestLogin_Unverified(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("Login", mock.Anything, "a@x.io", "pw").Return(nil, &domain.UnverifiedError{AccountID: "reg-9"})

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).Login(rr, jsonRequest(t, map[string]string{"email": "a@x.io", "password": "pw"}))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	body := decodeMap(t, rr)
	assert.Equal(t, "Account not verified", body["error"])
	assert.Equal(t, "reg-9", body["userId"])
}

func TestLogin_OK(t *testing.T) {
	svc := new(mockAuthSvc)
	acc := &domain.Account{AccountID: "acc-1", FirstName: "Ada", LastName: "L", Email: "a@x.io", PasswordHash: "secret-hash"}
	svc.On("Login", mock.Anything, "a@x.io", "pw").Return(&auth.Session{Token: "tok", Account: acc}, nil)

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).Login(rr, jsonRequest(t, map[string]string{"email": "a@x.io", "password": "pw"}))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeMap(t, rr)
	assert.Equal(t, "tok", body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "acc-1", user["id"])
	assert.NotContains(t, rr.Body.String(), "secret-hash")
}

func TestForgotPassword_MailFailure(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("ForgotPassword", mock.Anything, "a@x.io").Return("acc-1", fmt.Errorf("send: %w", domain.ErrUpstream))

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).ForgotPassword(rr, jsonRequest(t, map[string]string{"email": "a@x.io"}))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to send password reset email. Please try again.", decodeMap(t, rr)["error"])
}

func TestResetPassword_MissingFields(t *testing.T) {
	rr := httptest.NewRecorder()
	NewAuthHandler(new(mockAuthSvc)).ResetPassword(rr, jsonRequest(t, map[string]string{"userId": "acc-1"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestResendOTP_PassesType(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("ResendOTP", mock.Anything, "acc-1", domain.PurposeReset).Return("a@x.io", nil)

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).ResendOTP(rr, jsonRequest(t, map[string]string{"userId": "acc-1", "type": "reset"}))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "a@x.io", decodeMap(t, rr)["email"])
}

func TestResendOTP_BadType(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("ResendOTP", mock.Anything, "acc-1", domain.Purpose("sms")).Return("", fmt.Errorf("type: %w", domain.ErrBadRequest))

	rr := httptest.NewRecorder()
	NewAuthHandler(svc).ResendOTP(rr, jsonRequest(t, map[string]string{"userId": "acc-1", "type": "sms"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid OTP type. Use signup or reset", decodeMap(t, rr)["error"])
}
