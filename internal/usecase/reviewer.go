package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
)

// AutoReviewerIdentity tags assessments written by the automated path,
// distinguishing them from human review.
const AutoReviewerIdentity = "ai-auto-reviewer"

const (
	reviewMaxTokens    = 500
	reviewExcerptChars = 2000
)

const reviewPromptTemplate = `You are reviewing a competitive intelligence article for a Web3 advertising company that operates two products:
1. AMP (Advertising Marketplace Platform)
2. Zero-Day (Ad reporting/analytics product)

Review this article and provide threat assessment:

ARTICLE DETAILS:
Headline: %s
Source: %s
URL: %s
Published: %s

AI CLASSIFICATION:
Relevance Score: %d/5
Category: %s
Product Impact: %s
Summary: %s

ARTICLE TEXT:
%s

Based on this information, provide your assessment in JSON format:

{
  "threat_level": "HIGH|MEDIUM|LOW|OPPORTUNITY",
  "product_impact": "AMP|Zero-Day|Both|General",
  "action_recommendation": "Watch|Discuss|Urgent Response",
  "reasoning": "Brief explanation of your assessment"
}

Guidelines:
- HIGH: Direct competitive threat or major market shift
- MEDIUM: Relevant competitive activity worth monitoring
- LOW: Minor competitive news, tangentially relevant
- OPPORTUNITY: Potential partnership or market opportunity
- Watch: Monitor for updates
- Discuss: Bring to team discussion
- Urgent Response: Requires immediate action`

// AutoReviewer proposes threat assessments for classified-but-unreviewed
// articles by asking the LLM a second time, then persists through the
// validated scorer path.
type AutoReviewer struct {
	chat   ports.ChatClient
	store  ports.AssessmentStore
	scorer *ThreatScorer
	logger *slog.Logger
}

// NewAutoReviewer wires the chat client, store, and scorer.
func NewAutoReviewer(chat ports.ChatClient, store ports.AssessmentStore, scorer *ThreatScorer, logger *slog.Logger) *AutoReviewer {
	return &AutoReviewer{chat: chat, store: store, scorer: scorer, logger: logger}
}

type reviewResponse struct {
	ThreatLevel   *string `json:"threat_level"`
	ProductImpact *string `json:"product_impact"`
	Action        *string `json:"action_recommendation"`
	Reasoning     string  `json:"reasoning"`
}

// Review assesses one pending article. Any failure - API error, empty
// response, unparseable JSON, invalid verdict - is reported as an error and
// leaves no partial write.
func (r *AutoReviewer) Review(ctx context.Context, article domain.PendingReview) error {
	response, err := r.chat.Complete(ctx, reviewPrompt(article), reviewMaxTokens)
	if err != nil {
		return fmt.Errorf("review request: %w", err)
	}
	if response == "" {
		return fmt.Errorf("empty review response")
	}

	var review reviewResponse
	if err := decodeModelJSON(response, &review); err != nil {
		return fmt.Errorf("parse review: %w", err)
	}
	if review.ThreatLevel == nil || review.ProductImpact == nil || review.Action == nil {
		return fmt.Errorf("review response missing required fields")
	}

	if err := r.scorer.Assign(ctx, article.ArticleID,
		*review.ThreatLevel, *review.ProductImpact, *review.Action, AutoReviewerIdentity); err != nil {
		return fmt.Errorf("store review: %w", err)
	}

	r.info("auto-reviewed article", "article_id", article.ArticleID,
		"level", *review.ThreatLevel, "action", *review.Action)
	if review.Reasoning != "" {
		r.debug("review reasoning", "article_id", article.ArticleID, "reasoning", review.Reasoning)
	}

	return nil
}

// ReviewAllPending walks every classified-but-unreviewed article. A failure
// for one article is logged and counted; the loop always continues.
func (r *AutoReviewer) ReviewAllPending(ctx context.Context) domain.ReviewStats {
	pending, err := r.store.PendingReviews(ctx)
	if err != nil {
		r.error("load pending reviews failed", "error", err)
		return domain.ReviewStats{}
	}

	if len(pending) == 0 {
		r.info("no articles pending review")
		return domain.ReviewStats{}
	}

	r.info("auto-reviewing pending articles", "count", len(pending))

	stats := domain.ReviewStats{Total: len(pending)}
	for _, article := range pending {
		if err := r.Review(ctx, article); err != nil {
			r.error("auto-review failed", "article_id", article.ArticleID, "error", err)
			stats.Failed++
			continue
		}
		stats.Reviewed++
	}

	r.info("auto-review complete", "reviewed", stats.Reviewed, "failed", stats.Failed)
	return stats
}

func reviewPrompt(article domain.PendingReview) string {
	excerpt := article.FullText
	if excerpt == "" {
		excerpt = article.Summary
	}
	excerpt = truncateText(excerpt, reviewExcerptChars)

	return fmt.Sprintf(reviewPromptTemplate,
		article.Headline, article.Source, article.URL, article.PubDate,
		article.Relevance, article.Category, article.ProductImpact, article.Summary,
		excerpt)
}

func (r *AutoReviewer) info(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *AutoReviewer) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *AutoReviewer) error(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Error(msg, args...)
	}
}
