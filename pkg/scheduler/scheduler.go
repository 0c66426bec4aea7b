// Package scheduler runs the checker on a fixed interval until its context
// is cancelled.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/checker"
)

// Config controls the polling cadence.
type Config struct {
	// Interval between full check cycles across all sources.
	Interval time.Duration
	// RunOnce performs a single cycle and returns instead of looping.
	RunOnce bool
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Minute,
	}
}

// Scheduler drives periodic check cycles.
type Scheduler struct {
	checker *checker.Checker
	config  Config
	logger  *zap.Logger
}

// New creates a scheduler around the given checker.
func New(c *checker.Checker, config Config, logger *zap.Logger) (*Scheduler, error) {
	if c == nil {
		return nil, fmt.Errorf("checker is required")
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", config.Interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		checker: c,
		config:  config,
		logger:  logger,
	}, nil
}

// Run performs an immediate cycle, then one per interval until ctx is
// cancelled. In run-once mode it returns after the first cycle.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Bool("run_once", s.config.RunOnce),
	)

	s.checker.CheckAll(ctx)
	if s.config.RunOnce {
		return nil
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.checker.CheckAll(ctx)
		}
	}
}
