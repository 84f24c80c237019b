package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"IntelScanner/internal/config"
	"IntelScanner/internal/ports"
)

// Scheduler wires the cron driver with the four recurring jobs: pipeline
// run, editor reminder, daily digest, and weekly summary. One run completes
// or fails before the next trigger does anything; an overlapping pipeline
// trigger is skipped.
type Scheduler struct {
	driver      ports.Scheduler
	pipeline    *Pipeline
	delivery    *Delivery
	assessments ports.AssessmentStore
	cfg         config.SchedulerConfig
	logger      *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, delivery *Delivery, assessments ports.AssessmentStore, cfg config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		driver:      driver,
		pipeline:    pipeline,
		delivery:    delivery,
		assessments: assessments,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start registers all jobs with the cron driver and begins scheduling.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"pipeline", s.cfg.PipelineCron, func() { s.runPipeline(ctx) }},
		{"editor_reminder", s.cfg.ReminderCron, func() { s.runReminder(ctx) }},
		{"daily_digest", s.cfg.DailyDigestCron, func() { s.runDigest(ctx) }},
		{"weekly_summary", s.cfg.WeeklySummaryCron, func() { s.runWeeklySummary(ctx) }},
	}

	for _, job := range jobs {
		if err := s.driver.AddJob(job.spec, job.run); err != nil {
			return fmt.Errorf("register %s job: %w", job.name, err)
		}
		s.info("scheduled job", "job", job.name, "spec", job.spec)
	}

	s.driver.Start()
	return nil
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) runPipeline(ctx context.Context) {
	s.info("running scheduled pipeline job")
	stats, err := s.pipeline.Run(ctx)
	if errors.Is(err, ErrRunInProgress) {
		s.warn("previous pipeline run still active, skipping trigger")
		return
	}
	if err != nil {
		s.error("pipeline job failed", "error", err)
		return
	}
	s.info("pipeline job finished", "stored", stats.Stored, "classified", stats.Classified, "reviewed", stats.Reviewed)
}

func (s *Scheduler) runReminder(ctx context.Context) {
	pending, err := s.assessments.PendingReviews(ctx)
	if err != nil {
		s.error("editor reminder failed", "error", err)
		return
	}
	if len(pending) == 0 {
		s.info("editor reminder: no articles pending review")
		return
	}
	s.info("editor reminder: articles pending review", "count", len(pending))
}

func (s *Scheduler) runDigest(ctx context.Context) {
	s.info("running scheduled daily digest job")
	if err := s.delivery.SendDigest(ctx); err != nil {
		s.error("daily digest failed", "error", err)
	}
}

func (s *Scheduler) runWeeklySummary(ctx context.Context) {
	s.info("running scheduled weekly summary job")
	if err := s.delivery.SendWeeklySummary(ctx); err != nil {
		s.error("weekly summary failed", "error", err)
	}
}

func (s *Scheduler) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Scheduler) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Scheduler) error(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
