// Package memstore keeps every record in process memory. It backs
// STORE_DRIVER=memory and the router tests.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neuroscan-api/internal/domain"
)

type Accounts struct {
	mu   sync.RWMutex
	byID map[string]domain.Account
}

func NewAccounts() *Accounts {
	return &Accounts{byID: make(map[string]domain.Account)}
}

func (s *Accounts) Put(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.AccountID]; ok {
		return fmt.Errorf("account %s already exists: %w", a.AccountID, domain.ErrConflict)
	}
	s.byID[a.AccountID] = *a
	return nil
}

func (s *Accounts) Get(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[accountID]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return &a, nil
}

func (s *Accounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.byID {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
}

func (s *Accounts) UpdatePassword(_ context.Context, accountID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[accountID]
	if !ok {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	a.PasswordHash = passwordHash
	a.UpdatedAt = time.Now().UTC()
	s.byID[accountID] = a
	return nil
}

func (s *Accounts) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
