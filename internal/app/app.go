package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"IntelScanner/internal/config"
	"IntelScanner/internal/dedup"
	"IntelScanner/internal/infrastructure/feed"
	"IntelScanner/internal/infrastructure/llm"
	"IntelScanner/internal/infrastructure/scheduler"
	"IntelScanner/internal/infrastructure/slack"
	"IntelScanner/internal/infrastructure/storage"
	"IntelScanner/internal/logging"
	"IntelScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New builds the full application graph. Credential and database failures
// surface here, before any job is scheduled.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	repo := storage.NewSQLiteRepository(db, baseLogger.With("component", "storage"))
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}

	chatClient, err := llm.NewAnthropicClient(cfg.LLM)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build llm client: %w", err)
	}

	messenger, err := slack.NewMessenger(cfg.Slack, baseLogger.With("component", "slack"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build slack client: %w", err)
	}

	dd := dedup.New(repo, cfg.Pipeline.SimilarityThreshold, baseLogger.With("component", "dedup"))
	reader := feed.NewReader(nil, baseLogger.With("component", "feed"))

	collector := usecase.NewCollector(reader, dd, repo, cfg.Feeds, baseLogger.With("component", "collector"))
	classifier := usecase.NewClassifier(chatClient, repo, repo, cfg.Pipeline.RelevanceThreshold, baseLogger.With("component", "classifier"))
	scorer := usecase.NewThreatScorer(repo, baseLogger.With("component", "threat"))
	reviewer := usecase.NewAutoReviewer(chatClient, repo, scorer, baseLogger.With("component", "reviewer"))
	delivery := usecase.NewDelivery(repo, messenger,
		cfg.Slack.LeadershipChannel, cfg.Slack.AlertsChannel,
		cfg.Pipeline.MaxDailyItems, baseLogger.With("component", "delivery"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Collector:     collector,
		Classifier:    classifier,
		Reviewer:      reviewer,
		Delivery:      delivery,
		HoursBack:     cfg.Pipeline.HoursBack,
		ClassifyLimit: cfg.Pipeline.ClassifyLimit,
		Logger:        baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, pipeline, delivery, repo,
		cfg.Scheduler, baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		pipeline:  pipeline,
		scheduler: sched,
	}, nil
}

// Run starts the cron scheduler and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info("starting scheduler",
		"timezone", a.cfg.Scheduler.Timezone,
		"pipeline", a.cfg.Scheduler.PipelineCron,
		"daily_digest", a.cfg.Scheduler.DailyDigestCron)

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// RunOnce performs a single pipeline pass and returns.
func (a *Application) RunOnce(ctx context.Context) error {
	stats, err := a.pipeline.Run(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("single run complete", "stored", stats.Stored, "reviewed", stats.Reviewed, "alerts", stats.Alerts)
	return nil
}

// Close releases the database handle.
func (a *Application) Close() error {
	return a.db.Close()
}
