package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neuroscan-api/internal/domain"
)

type OTPs struct {
	mu   sync.Mutex
	byID map[string]domain.OneTimeCode
}

func NewOTPs() *OTPs {
	return &OTPs{byID: make(map[string]domain.OneTimeCode)}
}

func (s *OTPs) Put(_ context.Context, c *domain.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.CodeID] = *c
	return nil
}

func (s *OTPs) Find(_ context.Context, subjectID string, purpose domain.Purpose, code string) (*domain.OneTimeCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byID {
		if c.SubjectID == subjectID && c.Purpose == purpose && c.Code == code {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
}

func (s *OTPs) Delete(_ context.Context, codeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, codeID)
	return nil
}

func (s *OTPs) DeleteBySubject(_ context.Context, subjectID string, purpose domain.Purpose) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, c := range s.byID {
		if c.SubjectID == subjectID && c.Purpose == purpose {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func (s *OTPs) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, c := range s.byID {
		if c.CreatedAt.Before(cutoff) {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// Len reports how many codes are stored, expired or not.
func (s *OTPs) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
