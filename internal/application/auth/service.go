package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neuroscan-api/internal/domain"
)

// Sender delivers a one-time code to an email address.
type Sender interface {
	SendOTP(ctx context.Context, email, code string, purpose domain.Purpose) error
}

// Session is what a successful verification or login hands back to the client.
type Session struct {
	Token   string
	Account *domain.Account
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (string, error)
	VerifySignup(ctx context.Context, registrationID, code string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, accountID, code, newPassword string) error
	ResendOTP(ctx context.Context, subjectID string, purpose domain.Purpose) (string, error)
}

type codeManager interface {
	Issue(ctx context.Context, subjectID string, purpose domain.Purpose) (string, error)
	Verify(ctx context.Context, subjectID, code string, purpose domain.Purpose) (*domain.OneTimeCode, error)
	Consume(ctx context.Context, codeID string) error
}

type registrationManager interface {
	Create(ctx context.Context, firstName, lastName, email, passwordHash string) (*domain.Registration, error)
	Get(ctx context.Context, registrationID string) (*domain.Registration, error)
	FindByEmail(ctx context.Context, email string) (*domain.Registration, error)
	Promote(ctx context.Context, registrationID string) (*domain.Account, error)
	Discard(ctx context.Context, registrationID string) error
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error
}

type passwordHasher interface {
	Hash(plain string) (string, error)
	Check(plain, hash string) bool
}

type tokenSigner interface {
	Sign(accountID string) (string, error)
}

type service struct {
	codes       codeManager
	regs        registrationManager
	accounts    accountStore
	hasher      passwordHasher
	tokens      tokenSigner
	sender      Sender
	sendTimeout time.Duration
}

type ServiceDeps struct {
	Codes         codeManager
	Registrations registrationManager
	Accounts      accountStore
	Hasher        passwordHasher
	Tokens        tokenSigner
	Sender        Sender
	SendTimeout   time.Duration
}

func NewService(deps ServiceDeps) Service {
	timeout := deps.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &service{
		codes:       deps.Codes,
		regs:        deps.Registrations,
		accounts:    deps.Accounts,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		sender:      deps.Sender,
		sendTimeout: timeout,
	}
}

// Register stores a pending registration and mails its signup code. When the
// mail cannot be sent the registration and code are kept so the client can
// ask for a resend.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (string, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	reg, err := s.regs.Create(ctx, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), normalizeEmail(req.Email), hash)
	if err != nil {
		return "", err
	}
	code, err := s.codes.Issue(ctx, reg.RegistrationID, domain.PurposeSignup)
	if err != nil {
		return "", err
	}
	if err := s.deliver(ctx, reg.Email, code, domain.PurposeSignup); err != nil {
		return reg.RegistrationID, err
	}
	return reg.RegistrationID, nil
}

func (s *service) VerifySignup(ctx context.Context, registrationID, code string) (*Session, error) {
	rec, err := s.codes.Verify(ctx, registrationID, code, domain.PurposeSignup)
	if err != nil {
		return nil, err
	}
	acc, err := s.regs.Promote(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if err := s.codes.Consume(ctx, rec.CodeID); err != nil {
		slog.Warn("failed to delete consumed otp", "otp_id", rec.CodeID, "err", err)
	}
	if err := s.regs.Discard(ctx, registrationID); err != nil {
		slog.Warn("failed to delete promoted registration", "registration_id", registrationID, "err", err)
	}
	return s.session(acc)
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	acc, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.pendingOrInvalid(ctx, email, password)
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Check(password, acc.PasswordHash) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !acc.IsVerified {
		return nil, &domain.UnverifiedError{AccountID: acc.AccountID}
	}
	return s.session(acc)
}

// pendingOrInvalid reports an unverified sign-up when the credentials match a
// live registration, so the client can resume verification with its id.
func (s *service) pendingOrInvalid(ctx context.Context, email, password string) error {
	reg, err := s.regs.FindByEmail(ctx, email)
	if err == nil && s.hasher.Check(password, reg.PasswordHash) {
		return &domain.UnverifiedError{AccountID: reg.RegistrationID}
	}
	return fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
}

func (s *service) ForgotPassword(ctx context.Context, email string) (string, error) {
	acc, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	code, err := s.codes.Issue(ctx, acc.AccountID, domain.PurposeReset)
	if err != nil {
		return "", err
	}
	if err := s.deliver(ctx, acc.Email, code, domain.PurposeReset); err != nil {
		return acc.AccountID, err
	}
	return acc.AccountID, nil
}

// ResetPassword replaces the password hash. Tokens issued earlier stay valid
// until their own expiry.
func (s *service) ResetPassword(ctx context.Context, accountID, code, newPassword string) error {
	rec, err := s.codes.Verify(ctx, accountID, code, domain.PurposeReset)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		return err
	}
	if err := s.codes.Consume(ctx, rec.CodeID); err != nil {
		slog.Warn("failed to delete consumed otp", "otp_id", rec.CodeID, "err", err)
	}
	return nil
}

// ResendOTP issues a fresh code for a pending registration (signup) or an
// account (reset) and returns the address it was sent to.
func (s *service) ResendOTP(ctx context.Context, subjectID string, purpose domain.Purpose) (string, error) {
	if purpose == "" {
		purpose = domain.PurposeSignup
	}
	if !purpose.Valid() {
		return "", fmt.Errorf("type must be signup or reset: %w", domain.ErrBadRequest)
	}

	var email string
	switch purpose {
	case domain.PurposeSignup:
		reg, err := s.regs.Get(ctx, subjectID)
		if err != nil {
			return "", notFoundAsUser(err)
		}
		email = reg.Email
	case domain.PurposeReset:
		acc, err := s.accounts.Get(ctx, subjectID)
		if err != nil {
			return "", notFoundAsUser(err)
		}
		email = acc.Email
	}

	code, err := s.codes.Issue(ctx, subjectID, purpose)
	if err != nil {
		return "", err
	}
	if err := s.deliver(ctx, email, code, purpose); err != nil {
		return "", err
	}
	return email, nil
}

func (s *service) deliver(ctx context.Context, email, code string, purpose domain.Purpose) error {
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	if err := s.sender.SendOTP(ctx, email, code, purpose); err != nil {
		slog.Error("otp delivery failed", "purpose", purpose, "err", err)
		return fmt.Errorf("failed to send verification email: %w", domain.ErrUpstream)
	}
	return nil
}

func (s *service) session(acc *domain.Account) (*Session, error) {
	token, err := s.tokens.Sign(acc.AccountID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, Account: acc}, nil
}

func notFoundAsUser(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
