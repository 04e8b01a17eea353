package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neuroscan-api/internal/domain"
)

type Registrations struct {
	mu   sync.Mutex
	byID map[string]domain.Registration
}

func NewRegistrations() *Registrations {
	return &Registrations{byID: make(map[string]domain.Registration)}
}

func (s *Registrations) Put(_ context.Context, r *domain.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[r.RegistrationID] = *r
	return nil
}

func (s *Registrations) Get(_ context.Context, registrationID string) (*domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[registrationID]
	if !ok {
		return nil, fmt.Errorf("registration not found: %w", domain.ErrNotFound)
	}
	return &r, nil
}

func (s *Registrations) GetByEmail(_ context.Context, email string) (*domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byID {
		if r.Email == email {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("registration not found: %w", domain.ErrNotFound)
}

func (s *Registrations) Delete(_ context.Context, registrationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, registrationID)
	return nil
}

func (s *Registrations) DeleteByEmail(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.byID {
		if r.Email == email {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func (s *Registrations) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.byID {
		if r.CreatedAt.Before(cutoff) {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// CountByEmail reports how many pending registrations exist for email.
func (s *Registrations) CountByEmail(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.byID {
		if r.Email == email {
			n++
		}
	}
	return n
}
