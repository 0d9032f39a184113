// Package scheduler runs the ETL refresh on a cron schedule in the
// long-running worker.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"epl_v4/etl/internal/config"
)

// RunFunc executes one full ETL pass.
type RunFunc func(ctx context.Context)

// Scheduler triggers ETL refreshes on the configured cron expression.
// Overlapping runs are skipped: a refresh that fires while the previous one
// is still going is dropped, not queued.
type Scheduler struct {
	cfg     *config.Config
	run     RunFunc
	cron    *cron.Cron
	running atomic.Bool
	logger  zerolog.Logger
}

// New creates a scheduler around the given run function.
func New(cfg *config.Config, run RunFunc, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		run:    run,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the refresh job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.RefreshCron, func() {
		if !s.running.CompareAndSwap(false, true) {
			s.logger.Warn().Msg("Previous ETL run still in progress, skipping refresh")
			return
		}
		defer s.running.Store(false)

		s.logger.Info().Msg("Running scheduled ETL refresh...")
		s.run(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule ETL refresh: %w", err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.cfg.RefreshCron).
		Msg("ETL refresh scheduled")
	return nil
}

// Stop stops the cron loop. A run already in flight finishes on its own.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.logger.Info().Msg("Scheduler stopped")
}
