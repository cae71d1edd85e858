package core

// scheduler.go runs scheduled comparison tasks in the background.
//
// Each check runs every due task with bounded parallelism. A failing task is
// flagged and logged; it never stops the scheduler.

import (
	"context"
	"log/slog"
	"time"
)

// SchedulerConfig controls the background task runner.
type SchedulerConfig struct {
	Interval      time.Duration // how often due tasks are checked (default: 1m)
	MaxConcurrent int           // tasks run in parallel per check (default: service setting)
}

// StartScheduler checks for due tasks immediately, then every Interval,
// until ctx is cancelled. Run it in its own goroutine.
func (s *Service) StartScheduler(ctx context.Context, cfg SchedulerConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = s.taskConc
	}

	slog.Info("task scheduler started",
		"interval", cfg.Interval.String(),
		"max_concurrent", cfg.MaxConcurrent,
	)

	s.runSchedulerPass(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("task scheduler stopped")
			return
		case <-ticker.C:
			s.runSchedulerPass(ctx, cfg)
		}
	}
}

func (s *Service) runSchedulerPass(ctx context.Context, cfg SchedulerConfig) {
	start := time.Now()

	sum, err := s.runDueTasks(ctx, s.now(), cfg.MaxConcurrent)
	if err != nil {
		slog.Error("scheduled task pass failed", "error", err)
		return
	}
	if sum.Due == 0 {
		slog.Debug("no scheduled tasks due")
		return
	}

	slog.Info("scheduled task pass completed",
		"due", sum.Due,
		"completed", sum.Completed,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
