// Package scheduler runs the recurring jobs: nightly PMS sync, e-filing
// status polling and scheduled report delivery.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/propertilaw/propertilaw/internal/config"
	"github.com/propertilaw/propertilaw/internal/services"
)

// Scheduler wraps the cron runner and the jobs it drives.
type Scheduler struct {
	cron    *cron.Cron
	sync    *services.SyncService
	efiling *services.EFilingService
	reports *services.ReportService
}

// New builds a Scheduler with the standard five-field cron parser.
func New(sync *services.SyncService, efiling *services.EFilingService, reports *services.ReportService) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		sync:    sync,
		efiling: efiling,
		reports: reports,
	}
}

// Start registers the jobs on their configured schedules and starts the
// runner. Job errors are logged inside the jobs themselves.
func (s *Scheduler) Start(cfg *config.Config) error {
	if _, err := s.cron.AddFunc(cfg.SyncSchedule, func() {
		slog.Info("scheduled sync starting")
		s.sync.SyncAll(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", cfg.SyncSchedule, err)
	}

	if _, err := s.cron.AddFunc(cfg.PollSchedule, func() {
		slog.Info("e-filing status poll starting")
		s.efiling.PollAll(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", cfg.PollSchedule, err)
	}

	if _, err := s.cron.AddFunc(cfg.ReportSchedule, func() {
		slog.Info("scheduled report delivery starting")
		s.reports.DeliverScheduled()
	}); err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", cfg.ReportSchedule, err)
	}

	s.cron.Start()
	slog.Info("scheduler started",
		"syncSchedule", cfg.SyncSchedule,
		"pollSchedule", cfg.PollSchedule,
		"reportSchedule", cfg.ReportSchedule)
	return nil
}

// Stop halts the runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
