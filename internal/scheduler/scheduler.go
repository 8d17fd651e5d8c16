// Package scheduler drives the load cycle: one background ticker plus a
// manual trigger, with at most one cycle in flight at any time.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"groundwatch/internal/models"
	"groundwatch/internal/observability"
)

// ErrCycleRunning is returned by TriggerNow while a cycle is in progress.
// Manual triggers are rejected, never queued or run in parallel.
var ErrCycleRunning = errors.New("a load cycle is already running")

// Runner executes one load cycle and reports its outcome.
type Runner interface {
	Run(ctx context.Context) models.CycleReport
}

// Scheduler is a two-state machine: Idle (waiting for the next tick or a
// manual trigger) and Running (one cycle in progress). The single mutex-held
// flag is the only coordination; there is exactly one writer path.
type Scheduler struct {
	runner       Runner
	interval     time.Duration
	cycleTimeout time.Duration
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler.
func New(runner Runner, interval, cycleTimeout time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		runner:       runner,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
	}
}

// Run blocks until ctx is cancelled, executing one cycle immediately and one
// per interval after that. A tick that lands while a manually triggered
// cycle is still running is skipped.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval.String())

	if _, err := s.runCycle(ctx); err != nil {
		s.logger.Warn("initial cycle skipped", "reason", err)
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return
		case <-ticker.Chan():
			if _, err := s.runCycle(ctx); err != nil {
				s.logger.Debug("tick skipped", "reason", err)
			}
		}
	}
}

// TriggerNow runs one cycle synchronously. It returns ErrCycleRunning when
// a cycle is already in flight.
func (s *Scheduler) TriggerNow(ctx context.Context) (models.CycleReport, error) {
	return s.runCycle(ctx)
}

func (s *Scheduler) runCycle(ctx context.Context) (models.CycleReport, error) {
	if !s.acquire() {
		return models.CycleReport{}, ErrCycleRunning
	}
	defer s.release()

	s.metrics.CycleRunning.Set(1)
	defer s.metrics.CycleRunning.Set(0)

	// Bound the whole cycle so a batch of hung districts cannot stall the
	// next tick indefinitely.
	cctx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	return s.runner.Run(cctx), nil
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
