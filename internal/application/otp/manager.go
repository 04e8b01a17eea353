package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/pkg/clock"
	"github.com/neuroscan-api/internal/pkg/id"
	"github.com/neuroscan-api/internal/pkg/token"
)

const codeDigits = 6

// Store is the subset of the one-time-code store the manager needs.
type Store interface {
	Put(ctx context.Context, c *domain.OneTimeCode) error
	Find(ctx context.Context, subjectID string, purpose domain.Purpose, code string) (*domain.OneTimeCode, error)
	Delete(ctx context.Context, codeID string) error
	DeleteBySubject(ctx context.Context, subjectID string, purpose domain.Purpose) (int, error)
}

// Manager issues and checks six-digit codes. At most one live code exists per
// (subject, purpose); validity is decided from CreatedAt, never from the sweeper.
type Manager struct {
	store Store
	clock clock.Clock
	ttl   time.Duration
}

func NewManager(store Store, clk clock.Clock, ttl time.Duration) *Manager {
	return &Manager{store: store, clock: clk, ttl: ttl}
}

// TTL is how long an issued code stays valid.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue replaces any code held by subjectID for purpose and returns the new one.
func (m *Manager) Issue(ctx context.Context, subjectID string, purpose domain.Purpose) (string, error) {
	if !purpose.Valid() {
		return "", fmt.Errorf("unknown otp purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	code, err := token.NewNumericCode(codeDigits)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	if _, err := m.store.DeleteBySubject(ctx, subjectID, purpose); err != nil {
		return "", fmt.Errorf("clear previous otp: %w", err)
	}

	now := m.clock.Now()
	rec := &domain.OneTimeCode{
		CodeID:    id.New(),
		SubjectID: subjectID,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl).Unix(),
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Verify returns the matching record. An expired record is left in place.
func (m *Manager) Verify(ctx context.Context, subjectID, code string, purpose domain.Purpose) (*domain.OneTimeCode, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("unknown otp purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	rec, err := m.store.Find(ctx, subjectID, purpose, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}
	if m.clock.Now().Sub(rec.CreatedAt) > m.ttl {
		return nil, domain.ErrExpired
	}
	return rec, nil
}

// Consume deletes a verified code.
func (m *Manager) Consume(ctx context.Context, codeID string) error {
	return m.store.Delete(ctx, codeID)
}
