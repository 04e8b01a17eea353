package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neuroscan-api/internal/config"
	"github.com/neuroscan-api/internal/domain"
	jwtinfra "github.com/neuroscan-api/internal/infrastructure/jwt"
	"github.com/neuroscan-api/internal/infrastructure/memstore"
	"github.com/neuroscan-api/internal/pkg/clock"
	"github.com/neuroscan-api/internal/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingSender struct {
	mu    sync.Mutex
	codes map[string]string
	fail  bool
}

func (s *recordingSender) SendOTP(_ context.Context, email, code string, purpose domain.Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return assert.AnError
	}
	if s.codes == nil {
		s.codes = make(map[string]string)
	}
	s.codes[email+"/"+string(purpose)] = code
	return nil
}

func (s *recordingSender) code(email string, purpose domain.Purpose) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email+"/"+string(purpose)]
}

type fixedClassifier struct{ result string }

func (c fixedClassifier) Classify(context.Context, []byte) (domain.Classification, error) {
	return domain.Classification{Result: c.result, Confidence: 97}, nil
}

type app struct {
	h      http.Handler
	clk    *clock.Fake
	sender *recordingSender
}

func newApp(t *testing.T) *app {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	sender := &recordingSender{}
	cfg := &config.Config{
		OTPTTL:            5 * time.Minute,
		RegistrationTTL:   15 * time.Minute,
		OTPServiceTimeout: time.Second,
		MaxUploadBytes:    1 << 20,
		AllowedOrigins:    []string{"*"},
	}
	tokens := jwtinfra.NewHMACProvider([]byte("router-test"), 24*time.Hour).WithClock(clk.Now)
	deps := &Deps{
		Clock:         clk,
		Accounts:      memstore.NewAccounts(),
		Registrations: memstore.NewRegistrations(),
		OTPs:          memstore.NewOTPs(),
		Predictions:   memstore.NewPredictions(),
		Visitors:      memstore.NewVisitors(),
		Objects:       memstore.NewObjects(),
		Sender:        sender,
		Tokens:        tokens,
		Hasher:        password.NewHasher(bcrypt.MinCost),
		Classifier:    fixedClassifier{result: domain.ResultTumor},
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &app{h: NewRouter(ctx, cfg, deps), clk: clk, sender: sender}
}

type response struct {
	code int
	body map[string]interface{}
	raw  []byte
}

func (a *app) do(t *testing.T, method, path, contentType string, body io.Reader, token string) response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)
	res := response{code: rr.Code, raw: rr.Body.Bytes()}
	_ = json.Unmarshal(res.raw, &res.body)
	return res
}

func (a *app) postJSON(t *testing.T, path string, v interface{}, token string) response {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return a.do(t, http.MethodPost, path, "application/json", bytes.NewReader(b), token)
}

func (a *app) signup(t *testing.T, email, pw string) (token, accountID string) {
	t.Helper()
	res := a.postJSON(t, "/api/auth/register", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": email, "password": pw,
	}, "")
	require.Equal(t, http.StatusCreated, res.code, string(res.raw))
	regID := res.body["userId"].(string)

	res = a.postJSON(t, "/api/auth/verify-otp", map[string]string{
		"userId": regID, "otp": a.sender.code(email, domain.PurposeSignup),
	}, "")
	require.Equal(t, http.StatusOK, res.code, string(res.raw))
	user := res.body["user"].(map[string]interface{})
	return res.body["token"].(string), user["id"].(string)
}

func imageUpload(t *testing.T, filename string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, _ = fw.Write([]byte("fake-image-bytes"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRouter_SignupVerifyLogin(t *testing.T) {
	a := newApp(t)

	res := a.postJSON(t, "/api/auth/register", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "Ada@Example.com", "password": "s3cret",
	}, "")
	require.Equal(t, http.StatusCreated, res.code)
	assert.Equal(t, "Please check your email for OTP to verify your account.", res.body["message"])
	regID := res.body["userId"].(string)

	res = a.postJSON(t, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "s3cret"}, "")
	assert.Equal(t, http.StatusForbidden, res.code)
	assert.Equal(t, "Account not verified", res.body["error"])
	assert.Equal(t, regID, res.body["userId"])

	res = a.postJSON(t, "/api/auth/verify-otp", map[string]string{"userId": regID, "otp": "not-it"}, "")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Invalid OTP", res.body["error"])

	code := a.sender.code("ada@example.com", domain.PurposeSignup)
	res = a.postJSON(t, "/api/auth/verify-otp", map[string]string{"userId": regID, "otp": code}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "Account verified successfully", res.body["message"])
	assert.NotEmpty(t, res.body["token"])

	res = a.postJSON(t, "/api/auth/verify-otp", map[string]string{"userId": regID, "otp": code}, "")
	assert.Equal(t, http.StatusBadRequest, res.code, "code is single use")

	res = a.postJSON(t, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Invalid credentials", res.body["error"])

	res = a.postJSON(t, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "s3cret"}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "Login successful", res.body["message"])

	res = a.postJSON(t, "/api/auth/register", map[string]string{
		"firstName": "Ada", "lastName": "L", "email": "ada@example.com", "password": "x",
	}, "")
	assert.Equal(t, http.StatusConflict, res.code)
	assert.Equal(t, "User already exists", res.body["error"])
}

func TestRouter_ExpiredCodeAndRegistration(t *testing.T) {
	a := newApp(t)
	res := a.postJSON(t, "/api/auth/register", map[string]string{
		"firstName": "B", "lastName": "C", "email": "b@x.io", "password": "pw",
	}, "")
	require.Equal(t, http.StatusCreated, res.code)
	regID := res.body["userId"].(string)
	code := a.sender.code("b@x.io", domain.PurposeSignup)

	a.clk.Advance(5*time.Minute + time.Second)
	res = a.postJSON(t, "/api/auth/verify-otp", map[string]string{"userId": regID, "otp": code}, "")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "OTP expired", res.body["error"])

	a.clk.Advance(399 * time.Second)
	res = a.postJSON(t, "/api/auth/resend-otp", map[string]string{"userId": regID}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "OTP sent successfully", res.body["message"])
	assert.Equal(t, "b@x.io", res.body["email"])

	// The fresh code is still valid but the registration is now past its 15 minutes.
	a.clk.Advance(201 * time.Second)
	res = a.postJSON(t, "/api/auth/verify-otp", map[string]string{"userId": regID, "otp": a.sender.code("b@x.io", domain.PurposeSignup)}, "")
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, "Registration data expired or not found", res.body["error"])
}

func TestRouter_RegisterBodies(t *testing.T) {
	a := newApp(t)

	form := url.Values{"firstName": {"F"}, "lastName": {"G"}, "email": {"form@x.io"}, "password": {"pw"}}
	res := a.do(t, http.MethodPost, "/api/auth/register", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), "")
	assert.Equal(t, http.StatusCreated, res.code)

	res = a.do(t, http.MethodPost, "/api/auth/register", "text/plain", strings.NewReader("hello"), "")
	assert.Equal(t, http.StatusUnsupportedMediaType, res.code)

	res = a.postJSON(t, "/api/auth/register", map[string]string{"firstName": "F", "email": "m@x.io", "password": "pw"}, "")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Missing required field: lastName", res.body["error"])
}

func TestRouter_RegisterMailFailure(t *testing.T) {
	a := newApp(t)
	a.sender.fail = true
	res := a.postJSON(t, "/api/auth/register", map[string]string{
		"firstName": "F", "lastName": "G", "email": "f@x.io", "password": "pw",
	}, "")
	assert.Equal(t, http.StatusInternalServerError, res.code)
	assert.Equal(t, "Failed to send verification email. Please try again.", res.body["error"])
}

func TestRouter_PasswordReset(t *testing.T) {
	a := newApp(t)
	a.signup(t, "r@x.io", "old-pw")

	res := a.postJSON(t, "/api/auth/forgot-password", map[string]string{"email": "nobody@x.io"}, "")
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, "User not found", res.body["error"])

	res = a.postJSON(t, "/api/auth/forgot-password", map[string]string{"email": "r@x.io"}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "Password reset OTP sent", res.body["message"])
	accountID := res.body["userId"].(string)

	res = a.postJSON(t, "/api/auth/reset-password", map[string]string{
		"userId": accountID, "otp": a.sender.code("r@x.io", domain.PurposeReset), "newPassword": "new-pw",
	}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "Password reset successful", res.body["message"])

	res = a.postJSON(t, "/api/auth/login", map[string]string{"email": "r@x.io", "password": "old-pw"}, "")
	assert.Equal(t, http.StatusUnauthorized, res.code)
	res = a.postJSON(t, "/api/auth/login", map[string]string{"email": "r@x.io", "password": "new-pw"}, "")
	assert.Equal(t, http.StatusOK, res.code)
}

func TestRouter_PredictionsAndDashboard(t *testing.T) {
	a := newApp(t)
	token, accountID := a.signup(t, "p@x.io", "pw")

	res := a.do(t, http.MethodGet, "/api/dashboard/predictions", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Token is missing", res.body["error"])

	res = a.do(t, http.MethodGet, "/api/dashboard/predictions", "", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Invalid or expired token", res.body["error"])

	body, ct := imageUpload(t, "scan.png")
	res = a.do(t, http.MethodPost, "/api/predict/authenticated", ct, body, token)
	require.Equal(t, http.StatusOK, res.code, string(res.raw))
	assert.Equal(t, map[string]interface{}{"result": domain.ResultTumor}, res.body)

	body, ct = imageUpload(t, "scan.gif")
	res = a.do(t, http.MethodPost, "/api/predict/authenticated", ct, body, token)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Invalid file format. Please upload JPG or PNG image", res.body["error"])

	res = a.do(t, http.MethodPost, "/api/predict/", "multipart/form-data; boundary=x", strings.NewReader("--x--\r\n"), "")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "No image file provided", res.body["error"])

	body, ct = imageUpload(t, "anon.jpg")
	res = a.do(t, http.MethodPost, "/api/predict/", ct, body, "")
	require.Equal(t, http.StatusOK, res.code)

	res = a.do(t, http.MethodGet, "/api/dashboard/predictions?page=1&limit=10", "", nil, token)
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 1, res.body["total"])
	assert.EqualValues(t, 1, res.body["totalPages"])
	items := res.body["predictions"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "20250601_120000_scan.png", first["imageName"])
	assert.Equal(t, "2025-06-01T12:00:00.000000", first["timestamp"])
	assert.NotContains(t, first, "confidence")

	res = a.do(t, http.MethodGet, "/api/dashboard/predictions/"+first["id"].(string), "", nil, token)
	assert.Equal(t, http.StatusOK, res.code)

	res = a.do(t, http.MethodGet, "/api/dashboard/predictions/unknown", "", nil, token)
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, "Prediction not found", res.body["error"])

	res = a.do(t, http.MethodGet, "/api/dashboard/statistics", "", nil, token)
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 1, res.body["totalPredictions"])
	assert.EqualValues(t, 100, res.body["tumorPercentage"])
	assert.NotNil(t, res.body["mostRecent"])

	res = a.do(t, http.MethodGet, "/api/dashboard/user-profile", "", nil, token)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, accountID, res.body["id"])
	assert.Equal(t, "p@x.io", res.body["email"])

	res = a.do(t, http.MethodGet, "/uploads/20250601_120000_scan.png", "", nil, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "fake-image-bytes", string(res.raw))

	res = a.do(t, http.MethodGet, "/uploads/missing.png", "", nil, "")
	assert.Equal(t, http.StatusNotFound, res.code)

	res = a.do(t, http.MethodGet, "/api/dashboard/public-statistics", "", nil, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 1, res.body["totalUsers"])
	assert.EqualValues(t, 2, res.body["totalPredictions"])
	assert.EqualValues(t, 2, res.body["tumorPredictions"])
}

func TestRouter_RecordVisitorAndHealth(t *testing.T) {
	a := newApp(t)

	res := a.postJSON(t, "/api/record-visitor", map[string]string{"sessionId": "s-1"}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, true, res.body["success"])
	assert.EqualValues(t, 1, res.body["totalVisitors"])
	assert.NotContains(t, res.body, "duplicate")

	res = a.postJSON(t, "/api/record-visitor", map[string]string{"sessionId": "s-1"}, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, true, res.body["duplicate"])
	assert.EqualValues(t, 1, res.body["totalVisitors"])

	res = a.do(t, http.MethodPost, "/api/record-visitor", "", nil, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 2, res.body["totalVisitors"])

	res = a.do(t, http.MethodGet, "/api/health", "", nil, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "healthy", res.body["status"])
	assert.Equal(t, "connected", res.body["database"])
}
