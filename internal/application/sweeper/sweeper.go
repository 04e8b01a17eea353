// Package sweeper periodically deletes ephemeral records that have outlived
// their window. Sweeps reclaim space only; validity is always re-checked by
// the code that reads the records.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/neuroscan-api/internal/pkg/clock"
)

// Purger is a store that can bulk-delete by creation time.
type Purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Task is one independent sweep loop.
type Task struct {
	Name     string
	Interval time.Duration
	MaxAge   time.Duration
	Store    Purger
}

type Sweeper struct {
	clock clock.Clock
	tasks []Task
	wg    sync.WaitGroup
}

func New(clk clock.Clock, tasks ...Task) *Sweeper {
	return &Sweeper{clock: clk, tasks: tasks}
}

// Start launches one goroutine per task with a positive Interval. Each runs a
// pass immediately and then once per Interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	for _, t := range s.tasks {
		if t.Interval <= 0 {
			slog.Error("sweeper not started: interval must be positive", "task", t.Name, "interval", t.Interval)
			continue
		}
		s.wg.Add(1)
		go s.run(ctx, t)
	}
}

// Wait blocks until every loop has returned.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context, t Task) {
	defer s.wg.Done()
	ticker := s.clock.NewTicker(t.Interval)
	defer ticker.Stop()

	slog.Info("sweeper started", "task", t.Name, "interval", t.Interval, "max_age", t.MaxAge)
	s.pass(ctx, t)
	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped", "task", t.Name)
			return
		case <-ticker.C():
			s.pass(ctx, t)
		}
	}
}

// pass never lets a failure escape; the next tick simply tries again.
func (s *Sweeper) pass(ctx context.Context, t Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sweep panicked", "task", t.Name, "panic", r)
		}
	}()

	cutoff := s.clock.Now().Add(-t.MaxAge)
	n, err := t.Store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("sweep failed", "task", t.Name, "err", err)
		return
	}
	if n > 0 {
		slog.Info("swept expired records", "task", t.Name, "deleted", n)
	}
}
