package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"cargo-watcher/internal/core/logger"

	"go.uber.org/zap"
)

// ErrRunInProgress is returned when a run is requested while a cycle is
// already active.
var ErrRunInProgress = errors.New("a cycle is already running")

// Job is the work one trigger invocation performs. The returned error is for
// logging only; it never stops the scheduler.
type Job func(ctx context.Context) error

// Scheduler fires a job on a fixed interval with at most one concurrent run
// process-wide. A tick or manual trigger that lands while a run is active is
// dropped, not queued, so missed fires coalesce into the next tick.
type Scheduler struct {
	interval time.Duration
	job      Job
	logger   *zap.Logger
	active   atomic.Bool
}

// New creates a Scheduler firing job every interval.
func New(interval time.Duration, job Job) *Scheduler {
	return &Scheduler{
		interval: interval,
		job:      job,
		logger:   logger.Get(),
	}
}

// Run fires the job once immediately, then on every tick, until ctx is
// canceled. Always returns nil after cancellation so an errgroup host is not
// torn down by a shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started", zap.Duration("interval", s.interval))

	s.fire(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

// TryRunNow runs the job synchronously if no run is active.
// Returns ErrRunInProgress otherwise.
func (s *Scheduler) TryRunNow(ctx context.Context) error {
	if !s.active.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer s.active.Store(false)

	return s.job(ctx)
}

// fire runs the job for a tick, dropping the tick when a run is active.
func (s *Scheduler) fire(ctx context.Context) {
	err := s.TryRunNow(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Warn("Previous cycle still running, skipping tick")
	case err != nil:
		s.logger.Error("Cycle failed", zap.Error(err))
	}
}
