package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"IntelScanner/internal/domain"
)

// ErrRunInProgress is returned when a pipeline run is requested while a
// previous one is still active. Overlapping runs are skipped, not queued.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// PipelineDeps wires all stages into the orchestration pipeline.
type PipelineDeps struct {
	Collector     *Collector
	Classifier    *Classifier
	Reviewer      *AutoReviewer
	Delivery      *Delivery
	HoursBack     int
	ClassifyLimit int
	Logger        *slog.Logger
}

// Pipeline implements the daily ingestion workflow: fetch feeds, store new
// articles, classify, auto-review, and alert on fresh HIGH verdicts.
type Pipeline struct {
	collector     *Collector
	classifier    *Classifier
	reviewer      *AutoReviewer
	delivery      *Delivery
	hoursBack     int
	classifyLimit int
	logger        *slog.Logger

	run sync.Mutex
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	hoursBack := deps.HoursBack
	if hoursBack <= 0 {
		hoursBack = DefaultHoursBack
	}
	classifyLimit := deps.ClassifyLimit
	if classifyLimit <= 0 {
		classifyLimit = 50
	}
	return &Pipeline{
		collector:     deps.Collector,
		classifier:    deps.Classifier,
		reviewer:      deps.Reviewer,
		delivery:      deps.Delivery,
		hoursBack:     hoursBack,
		classifyLimit: classifyLimit,
		logger:        deps.Logger,
	}
}

// Run executes one full pipeline pass. Per-item failures inside each stage
// surface as reduced counts in the returned stats, never as errors.
func (p *Pipeline) Run(ctx context.Context) (domain.PipelineStats, error) {
	if !p.run.TryLock() {
		return domain.PipelineStats{}, ErrRunInProgress
	}
	defer p.run.Unlock()

	p.info("starting daily pipeline")
	var stats domain.PipelineStats

	articles := p.collector.Fetch(ctx, p.hoursBack)
	stats.Fetched = len(articles)
	if len(articles) == 0 {
		p.info("no new articles found, pipeline complete")
		return stats, nil
	}

	ids := p.collector.Store(ctx, articles)
	stats.Stored = len(ids)
	if len(ids) == 0 {
		p.info("no new articles to process, pipeline complete")
		return stats, nil
	}

	results := p.classifier.ClassifyAndStore(ctx, ids)

	// Catch-up pass for articles left unclassified by earlier runs, e.g.
	// after exhausted retries or an interrupted pipeline.
	if backlog, err := p.classifier.UnclassifiedIDs(ctx, p.classifyLimit); err != nil {
		p.error("load classification backlog failed", "error", err)
	} else if len(backlog) > 0 {
		p.info("classifying backlog", "count", len(backlog))
		for id, classification := range p.classifier.ClassifyAndStore(ctx, backlog) {
			results[id] = classification
		}
	}

	stats.Classified = len(results)
	stats.Relevant = len(p.classifier.Relevant(results))

	reviewStats := p.reviewer.ReviewAllPending(ctx)
	stats.Reviewed = reviewStats.Reviewed
	stats.ReviewFailed = reviewStats.Failed

	alerts, err := p.delivery.SendRecentAlerts(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		p.error("high priority alerting failed", "error", err)
	}
	stats.Alerts = alerts

	p.info("daily pipeline complete",
		"fetched", stats.Fetched,
		"stored", stats.Stored,
		"classified", stats.Classified,
		"relevant", stats.Relevant,
		"reviewed", stats.Reviewed,
		"review_failed", stats.ReviewFailed,
		"alerts", stats.Alerts)

	return stats, nil
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) error(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
