package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/pkg/clock"
	"github.com/neuroscan-api/internal/pkg/id"
)

type Store interface {
	Put(ctx context.Context, r *domain.Registration) error
	Get(ctx context.Context, registrationID string) (*domain.Registration, error)
	GetByEmail(ctx context.Context, email string) (*domain.Registration, error)
	Delete(ctx context.Context, registrationID string) error
	DeleteByEmail(ctx context.Context, email string) (int, error)
}

type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
}

// Manager holds sign-up data until the email owner verifies it. A registration
// older than ttl is treated as absent even if the sweeper has not removed it yet.
type Manager struct {
	regs     Store
	accounts AccountStore
	clock    clock.Clock
	ttl      time.Duration
}

func NewManager(regs Store, accounts AccountStore, clk clock.Clock, ttl time.Duration) *Manager {
	return &Manager{regs: regs, accounts: accounts, clock: clk, ttl: ttl}
}

// Create stores a new pending registration, replacing any earlier one for the
// same email. It fails with ErrConflict when the email already has an account.
func (m *Manager) Create(ctx context.Context, firstName, lastName, email, passwordHash string) (*domain.Registration, error) {
	if err := m.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	if _, err := m.regs.DeleteByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("clear previous registration: %w", err)
	}

	reg := &domain.Registration{
		RegistrationID: id.New(),
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		PasswordHash:   passwordHash,
		CreatedAt:      m.clock.Now(),
	}
	if err := m.regs.Put(ctx, reg); err != nil {
		return nil, fmt.Errorf("store registration: %w", err)
	}
	return reg, nil
}

func (m *Manager) Get(ctx context.Context, registrationID string) (*domain.Registration, error) {
	reg, err := m.regs.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if m.expired(reg) {
		return nil, fmt.Errorf("registration expired: %w", domain.ErrNotFound)
	}
	return reg, nil
}

// FindByEmail returns the live registration for email, if any.
func (m *Manager) FindByEmail(ctx context.Context, email string) (*domain.Registration, error) {
	reg, err := m.regs.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if m.expired(reg) {
		return nil, fmt.Errorf("registration expired: %w", domain.ErrNotFound)
	}
	return reg, nil
}

// Promote turns a live registration into a verified account. The registration
// itself is left for the caller to Discard.
func (m *Manager) Promote(ctx context.Context, registrationID string) (*domain.Account, error) {
	reg, err := m.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if err := m.ensureEmailFree(ctx, reg.Email); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	acc := &domain.Account{
		AccountID:    id.New(),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Email:        reg.Email,
		PasswordHash: reg.PasswordHash,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.accounts.Put(ctx, acc); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return acc, nil
}

func (m *Manager) Discard(ctx context.Context, registrationID string) error {
	return m.regs.Delete(ctx, registrationID)
}

func (m *Manager) ensureEmailFree(ctx context.Context, email string) error {
	_, err := m.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("user already exists: %w", domain.ErrConflict)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("lookup account: %w", err)
	}
}

func (m *Manager) expired(reg *domain.Registration) bool {
	return m.clock.Now().Sub(reg.CreatedAt) > m.ttl
}
