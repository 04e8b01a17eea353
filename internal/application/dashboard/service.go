package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/pkg/clock"
	"github.com/neuroscan-api/internal/pkg/id"
)

// Visit is the outcome of recording a visitor.
type Visit struct {
	Duplicate     bool
	TotalVisitors int
}

type Service interface {
	Profile(ctx context.Context, accountID string) (*domain.Account, error)
	PublicStatistics(ctx context.Context) (*domain.PublicStatistics, error)
	RecordVisitor(ctx context.Context, req domain.RecordVisitorRequest, ipAddress string) (*Visit, error)
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	Count(ctx context.Context) (int, error)
}

type predictionTally interface {
	Tally(ctx context.Context, accountID string) (domain.PredictionTally, error)
}

type visitorStore interface {
	Put(ctx context.Context, v *domain.Visitor) error
	GetBySession(ctx context.Context, sessionID string) (*domain.Visitor, error)
	Count(ctx context.Context) (int, error)
}

type statsCache interface {
	GetPublic(ctx context.Context) (*domain.PublicStatistics, bool, error)
	SetPublic(ctx context.Context, s *domain.PublicStatistics) error
	Invalidate(ctx context.Context) error
}

type service struct {
	accounts    accountStore
	predictions predictionTally
	visitors    visitorStore
	cache       statsCache
	clock       clock.Clock
}

// ServiceDeps wires the dashboard. Cache is optional.
type ServiceDeps struct {
	Accounts    accountStore
	Predictions predictionTally
	Visitors    visitorStore
	Cache       statsCache
	Clock       clock.Clock
}

func NewService(deps ServiceDeps) Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &service{
		accounts:    deps.Accounts,
		predictions: deps.Predictions,
		visitors:    deps.Visitors,
		cache:       deps.Cache,
		clock:       clk,
	}
}

func (s *service) Profile(ctx context.Context, accountID string) (*domain.Account, error) {
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return acc, nil
}

// PublicStatistics aggregates site-wide counters. A cache failure falls back
// to computing them from the stores.
func (s *service) PublicStatistics(ctx context.Context) (*domain.PublicStatistics, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetPublic(ctx)
		if err != nil {
			slog.Warn("stats cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	users, err := s.accounts.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}
	visitors, err := s.visitors.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count visitors: %w", err)
	}
	tally, err := s.predictions.Tally(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("tally predictions: %w", err)
	}

	stats := &domain.PublicStatistics{
		TotalUsers:         users,
		TotalVisitors:      visitors,
		TotalPredictions:   tally.Total,
		TumorPredictions:   tally.Tumor,
		NoTumorPredictions: tally.NoTumor,
	}
	if s.cache != nil {
		if err := s.cache.SetPublic(ctx, stats); err != nil {
			slog.Warn("stats cache write failed", "error", err)
		}
	}
	return stats, nil
}

// RecordVisitor stores one visit per session id. Requests without a session id
// are always recorded.
func (s *service) RecordVisitor(ctx context.Context, req domain.RecordVisitorRequest, ipAddress string) (*Visit, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID != "" {
		_, err := s.visitors.GetBySession(ctx, sessionID)
		switch {
		case err == nil:
			total, err := s.visitors.Count(ctx)
			if err != nil {
				return nil, err
			}
			return &Visit{Duplicate: true, TotalVisitors: total}, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	v := &domain.Visitor{
		VisitorID: id.New(),
		SessionID: sessionID,
		UserAgent: req.UserAgent,
		IPAddress: ipAddress,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.visitors.Put(ctx, v); err != nil {
		return nil, fmt.Errorf("record visitor: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			slog.Warn("stats cache invalidate failed", "error", err)
		}
	}

	total, err := s.visitors.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Visit{TotalVisitors: total}, nil
}
