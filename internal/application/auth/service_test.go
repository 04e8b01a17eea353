package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neuroscan-api/internal/application/otp"
	"github.com/neuroscan-api/internal/application/registration"
	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/infrastructure/memstore"
	"github.com/neuroscan-api/internal/pkg/clock"
	"github.com/neuroscan-api/internal/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockSender struct {
	mock.Mock
	mu    sync.Mutex
	codes map[string]string
}

func (m *mockSender) SendOTP(ctx context.Context, email, code string, purpose domain.Purpose) error {
	m.mu.Lock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[email+"/"+string(purpose)] = code
	m.mu.Unlock()
	return m.Called(ctx, email, code, purpose).Error(0)
}

func (m *mockSender) last(email string, purpose domain.Purpose) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email+"/"+string(purpose)]
}

type stubSigner struct{}

func (stubSigner) Sign(accountID string) (string, error) { return "token-for-" + accountID, nil }

// --- fixture ---

type fixture struct {
	svc      Service
	sender   *mockSender
	clk      *clock.Fake
	otps     *memstore.OTPs
	regs     *memstore.Registrations
	accounts *memstore.Accounts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	otps := memstore.NewOTPs()
	regs := memstore.NewRegistrations()
	accounts := memstore.NewAccounts()
	sender := new(mockSender)

	svc := NewService(ServiceDeps{
		Codes:         otp.NewManager(otps, clk, 300*time.Second),
		Registrations: registration.NewManager(regs, accounts, clk, 900*time.Second),
		Accounts:      accounts,
		Hasher:        password.NewHasher(bcrypt.MinCost),
		Tokens:        stubSigner{},
		Sender:        sender,
	})
	return &fixture{svc: svc, sender: sender, clk: clk, otps: otps, regs: regs, accounts: accounts}
}

func (f *fixture) register(t *testing.T, email, pwd string) string {
	t.Helper()
	f.sender.On("SendOTP", mock.Anything, email, mock.Anything, domain.PurposeSignup).Return(nil)
	id, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "Ada", LastName: "Lovelace", Email: email, Password: pwd,
	})
	require.NoError(t, err)
	return id
}

// --- tests ---

func TestRegisterThenVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	regID := f.register(t, "ada@x.io", "s3cret")

	code := f.sender.last("ada@x.io", domain.PurposeSignup)
	require.Len(t, code, 6)

	sess, err := f.svc.VerifySignup(ctx, regID, code)
	require.NoError(t, err)
	assert.True(t, sess.Account.IsVerified)
	assert.Equal(t, "token-for-"+sess.Account.AccountID, sess.Token)

	assert.Zero(t, f.otps.Len(), "code consumed")
	assert.Zero(t, f.regs.CountByEmail("ada@x.io"), "registration discarded")

	_, err = f.svc.VerifySignup(ctx, regID, code)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestRegister_NormalizesEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@x.io", "pw")
	f.sender.On("SendOTP", mock.Anything, "ada@x.io", mock.Anything, domain.PurposeSignup).Return(nil)

	_, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "Ada", LastName: "L", Email: "  ADA@x.io ", Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.regs.CountByEmail("ada@x.io"))
}

func TestRegister_ExistingAccount(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.accounts.Put(context.Background(), &domain.Account{AccountID: "a1", Email: "ada@x.io", IsVerified: true}))

	_, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "Ada", LastName: "L", Email: "ada@x.io", Password: "pw",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.sender.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_SendFailureKeepsRecords(t *testing.T) {
	f := newFixture(t)
	f.sender.On("SendOTP", mock.Anything, "ada@x.io", mock.Anything, domain.PurposeSignup).Return(errors.New("503"))

	_, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "Ada", LastName: "L", Email: "ada@x.io", Password: "pw",
	})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, 1, f.regs.CountByEmail("ada@x.io"))
	assert.Equal(t, 1, f.otps.Len())
}

func TestVerify_ExpiredCode(t *testing.T) {
	f := newFixture(t)
	regID := f.register(t, "ada@x.io", "pw")
	code := f.sender.last("ada@x.io", domain.PurposeSignup)

	f.clk.Advance(301 * time.Second)
	_, err := f.svc.VerifySignup(context.Background(), regID, code)
	assert.ErrorIs(t, err, domain.ErrExpired)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	regID := f.register(t, "ada@x.io", "pw")

	_, err := f.svc.Login(ctx, "ada@x.io", "pw")
	var unverified *domain.UnverifiedError
	require.ErrorAs(t, err, &unverified)
	assert.Equal(t, regID, unverified.AccountID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Login(ctx, "ada@x.io", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.VerifySignup(ctx, regID, f.sender.last("ada@x.io", domain.PurposeSignup))
	require.NoError(t, err)

	sess, err := f.svc.Login(ctx, "ada@x.io", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	_, err = f.svc.Login(ctx, "ada@x.io", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.Login(ctx, "nobody@x.io", "pw")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_UnverifiedAccountFlag(t *testing.T) {
	f := newFixture(t)
	hash, err := password.NewHasher(bcrypt.MinCost).Hash("pw")
	require.NoError(t, err)
	require.NoError(t, f.accounts.Put(context.Background(), &domain.Account{AccountID: "a1", Email: "ada@x.io", PasswordHash: hash}))

	_, err = f.svc.Login(context.Background(), "ada@x.io", "pw")
	var unverified *domain.UnverifiedError
	require.ErrorAs(t, err, &unverified)
	assert.Equal(t, "a1", unverified.AccountID)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	regID := f.register(t, "ada@x.io", "old")
	sess, err := f.svc.VerifySignup(ctx, regID, f.sender.last("ada@x.io", domain.PurposeSignup))
	require.NoError(t, err)

	f.sender.On("SendOTP", mock.Anything, "ada@x.io", mock.Anything, domain.PurposeReset).Return(nil)
	accID, err := f.svc.ForgotPassword(ctx, "ada@x.io")
	require.NoError(t, err)
	assert.Equal(t, sess.Account.AccountID, accID)

	code := f.sender.last("ada@x.io", domain.PurposeReset)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, accID, "bad", "new"), domain.ErrInvalidCode)
	require.NoError(t, f.svc.ResetPassword(ctx, accID, code, "new"))

	_, err = f.svc.Login(ctx, "ada@x.io", "old")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.svc.Login(ctx, "ada@x.io", "new")
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, accID, code, "again"), domain.ErrInvalidCode)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ForgotPassword(context.Background(), "ghost@x.io")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResetPassword_ExpiredCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	regID := f.register(t, "ada@x.io", "old")
	_, err := f.svc.VerifySignup(ctx, regID, f.sender.last("ada@x.io", domain.PurposeSignup))
	require.NoError(t, err)

	f.sender.On("SendOTP", mock.Anything, "ada@x.io", mock.Anything, domain.PurposeReset).Return(nil)
	accID, err := f.svc.ForgotPassword(ctx, "ada@x.io")
	require.NoError(t, err)

	f.clk.Advance(6 * time.Minute)
	err = f.svc.ResetPassword(ctx, accID, f.sender.last("ada@x.io", domain.PurposeReset), "new")
	assert.ErrorIs(t, err, domain.ErrExpired)
}

func TestResendOTP_InvalidatesOldCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	regID := f.register(t, "ada@x.io", "pw")
	first := f.sender.last("ada@x.io", domain.PurposeSignup)

	email, err := f.svc.ResendOTP(ctx, regID, "")
	require.NoError(t, err)
	assert.Equal(t, "ada@x.io", email)
	second := f.sender.last("ada@x.io", domain.PurposeSignup)
	assert.Equal(t, 1, f.otps.Len())

	if first != second {
		_, err = f.svc.VerifySignup(ctx, regID, first)
		assert.ErrorIs(t, err, domain.ErrInvalidCode)
	}
	_, err = f.svc.VerifySignup(ctx, regID, second)
	assert.NoError(t, err)
}

func TestResendOTP_BadInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ResendOTP(context.Background(), "x", domain.Purpose("sms"))
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = f.svc.ResendOTP(context.Background(), "missing", domain.PurposeSignup)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.ResendOTP(context.Background(), "missing", domain.PurposeReset)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeliver_HonoursTimeout(t *testing.T) {
	sender := new(mockSender)
	sender.On("SendOTP", mock.Anything, "a@x.io", "123456", domain.PurposeSignup).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok)
		}).Return(nil)

	s := NewService(ServiceDeps{Sender: sender, SendTimeout: time.Second}).(*service)
	require.NoError(t, s.deliver(context.Background(), "a@x.io", "123456", domain.PurposeSignup))
	sender.AssertExpectations(t)
}
