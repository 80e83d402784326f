// Package scheduler runs hanatv's two recurring background jobs — EPG
// refresh from the tuner backend and garbage collection of elapsed
// programs — on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a robfig/cron instance with hanatv's fixed set of
// internal jobs. Unlike a multi-tenant job queue with per-source schedules
// loaded from the database, hanatv only ever runs two jobs, so entries are
// registered once at Start and never resynced.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	epgRefreshCron string
	programGCCron  string

	refreshEPG  func(ctx context.Context) error
	gcPrograms  func(ctx context.Context) error
}

// New creates a Scheduler. refreshEPG and gcPrograms are the job bodies;
// either may be nil to disable that job (e.g. in tests exercising only one).
func New(epgRefreshCron, programGCCron string, refreshEPG, gcPrograms func(ctx context.Context) error, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:           cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger:         logger,
		epgRefreshCron: epgRefreshCron,
		programGCCron:  programGCCron,
		refreshEPG:     refreshEPG,
		gcPrograms:     gcPrograms,
	}
}

// Start registers the EPG refresh and program GC jobs and starts the cron
// scheduler's background goroutine. The background context bounds each job
// run, not the scheduler's own lifetime.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.refreshEPG != nil {
		if s.epgRefreshCron == "" {
			return fmt.Errorf("scheduler: epg refresh cron schedule is required")
		}
		if _, err := s.cron.AddFunc(s.epgRefreshCron, s.runJob(ctx, "epg_refresh", s.refreshEPG)); err != nil {
			return fmt.Errorf("scheduler: registering epg refresh job: %w", err)
		}
	}

	if s.gcPrograms != nil {
		if s.programGCCron == "" {
			return fmt.Errorf("scheduler: program gc cron schedule is required")
		}
		if _, err := s.cron.AddFunc(s.programGCCron, s.runJob(ctx, "program_gc", s.gcPrograms)); err != nil {
			return fmt.Errorf("scheduler: registering program gc job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.String("epg_refresh_cron", s.epgRefreshCron),
		slog.String("program_gc_cron", s.programGCCron),
	)
	return nil
}

// Stop stops the scheduler, waiting for any in-flight job run to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, name string, fn func(ctx context.Context) error) func() {
	return func() {
		start := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.Error("scheduled job failed", slog.String("job", name), slog.Any("error", err))
			return
		}
		s.logger.Debug("scheduled job completed", slog.String("job", name), slog.Duration("elapsed", time.Since(start)))
	}
}

// RunEPGRefreshNow runs the EPG refresh job immediately, outside its cron
// schedule — used by a manual "refresh now" admin action.
func (s *Scheduler) RunEPGRefreshNow(ctx context.Context) error {
	if s.refreshEPG == nil {
		return fmt.Errorf("scheduler: epg refresh job is not configured")
	}
	return s.refreshEPG(ctx)
}
