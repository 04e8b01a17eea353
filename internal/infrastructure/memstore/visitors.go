package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/neuroscan-api/internal/domain"
)

type Visitors struct {
	mu   sync.RWMutex
	byID map[string]domain.Visitor
}

func NewVisitors() *Visitors {
	return &Visitors{byID: make(map[string]domain.Visitor)}
}

func (s *Visitors) Put(_ context.Context, v *domain.Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[v.VisitorID] = *v
	return nil
}

func (s *Visitors) GetBySession(_ context.Context, sessionID string) (*domain.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.byID {
		if v.SessionID != "" && v.SessionID == sessionID {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("visitor not found: %w", domain.ErrNotFound)
}

func (s *Visitors) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
