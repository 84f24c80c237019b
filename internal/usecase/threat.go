package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
)

// ErrNoAssessment is returned when an operation requires a prior threat
// assessment that does not exist.
var ErrNoAssessment = errors.New("no threat assessment for article")

// ThreatScorer validates and persists threat verdicts. Validation rejects
// any out-of-enum field before a single byte is written.
type ThreatScorer struct {
	store  ports.AssessmentStore
	logger *slog.Logger
}

// NewThreatScorer wires the assessment store.
func NewThreatScorer(store ports.AssessmentStore, logger *slog.Logger) *ThreatScorer {
	return &ThreatScorer{store: store, logger: logger}
}

// Assign validates the three verdict fields and writes the assessment with
// insert-or-replace semantics: re-assessing overwrites the prior verdict,
// reviewer, and timestamp. There is no assessment history.
func (s *ThreatScorer) Assign(ctx context.Context, articleID int64, threatLevel, productImpact, action, reviewedBy string) error {
	level, err := domain.ParseThreatLevel(threatLevel)
	if err != nil {
		s.error("rejecting assessment", "article_id", articleID, "error", err)
		return err
	}

	impact, err := domain.ParseProductImpact(productImpact)
	if err != nil {
		s.error("rejecting assessment", "article_id", articleID, "error", err)
		return err
	}

	validAction, err := domain.ParseActionRecommendation(action)
	if err != nil {
		s.error("rejecting assessment", "article_id", articleID, "error", err)
		return err
	}

	assessment := domain.ThreatAssessment{
		ArticleID:  articleID,
		Level:      level,
		Impact:     impact,
		Action:     validAction,
		ReviewedBy: reviewedBy,
	}

	if err := s.store.UpsertAssessment(ctx, assessment); err != nil {
		return fmt.Errorf("persist assessment: %w", err)
	}

	s.info("assigned threat level", "article_id", articleID, "level", level)
	return nil
}

// UpdateAction re-reads the existing threat level and product impact for an
// article and re-runs the validated write path with only a new action. Fails
// when no prior assessment exists.
func (s *ThreatScorer) UpdateAction(ctx context.Context, articleID int64, action, reviewedBy string) error {
	if _, err := domain.ParseActionRecommendation(action); err != nil {
		s.error("rejecting action update", "article_id", articleID, "error", err)
		return err
	}

	existing, err := s.store.AssessmentByArticle(ctx, articleID)
	if err != nil {
		return fmt.Errorf("load assessment: %w", err)
	}
	if existing == nil {
		s.error("no assessment to update", "article_id", articleID)
		return fmt.Errorf("%w: %d", ErrNoAssessment, articleID)
	}

	return s.Assign(ctx, articleID, string(existing.Level), existing.Impact, action, reviewedBy)
}

func (s *ThreatScorer) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *ThreatScorer) error(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
