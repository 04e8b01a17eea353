package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/neuroscan-api/internal/domain"
)

type Predictions struct {
	mu   sync.RWMutex
	byID map[string]domain.Prediction
}

func NewPredictions() *Predictions {
	return &Predictions{byID: make(map[string]domain.Prediction)}
}

func (s *Predictions) Put(_ context.Context, p *domain.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.PredictionID] = *p
	return nil
}

func (s *Predictions) Get(_ context.Context, predictionID string) (*domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[predictionID]
	if !ok {
		return nil, fmt.Errorf("prediction not found: %w", domain.ErrNotFound)
	}
	return &p, nil
}

func (s *Predictions) ListByAccount(_ context.Context, accountID string) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Prediction
	for _, p := range s.byID {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Predictions) Tally(_ context.Context, accountID string) (domain.PredictionTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var t domain.PredictionTally
	for _, p := range s.byID {
		if accountID != "" && p.AccountID != accountID {
			continue
		}
		t.Total++
		switch p.Result {
		case domain.ResultTumor:
			t.Tumor++
		case domain.ResultNoTumor:
			t.NoTumor++
		}
	}
	return t, nil
}
