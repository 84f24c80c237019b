package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
)

const (
	// DefaultRelevanceThreshold is the minimum score for an article to be
	// considered for delivery. Storage itself is never threshold-gated.
	DefaultRelevanceThreshold = 3

	// maxPromptChars bounds article text embedded in the prompt so the
	// request stays inside the model context window.
	maxPromptChars = 8000

	classifyMaxTokens = 1000
	defaultRelevance  = 3
)

const classificationPromptTemplate = `You are a competitive intelligence analyst for Alkimi, an AdTech company with two key products:
1. AMP (Advertiser Management Platform) - unified multi-DSP campaign management with AI reporting
2. Zero-Day Payments - blockchain-based instant publisher settlement

Analyze the following article and determine:
1. RELEVANCE (1-5): How relevant is this to AI/automation in advertising?
2. CATEGORY: Campaign Automation | Cross-DSP Tools | AI Reporting/Analytics | Payment Innovation | Web3 Advertising | Other
3. PRODUCT_IMPACT: AMP | Zero-Day | Both | General
4. SUMMARY: 2-sentence summary focusing on competitive implications for Alkimi

Article:
%s

Respond in JSON format with the following structure:
{
    "relevance": <1-5 integer>,
    "category": "<category name>",
    "product_impact": "<AMP|Zero-Day|Both|General>",
    "summary": "<2-sentence summary>"
}`

// Classifier runs articles through the LLM and persists the verdicts.
type Classifier struct {
	chat            ports.ChatClient
	articles        ports.ArticleStore
	classifications ports.ClassificationStore
	threshold       int
	maxRetries      int
	backoffBase     time.Duration
	callDelay       time.Duration
	logger          *slog.Logger
}

// NewClassifier builds a classifier; threshold <= 0 falls back to the default.
func NewClassifier(chat ports.ChatClient, articles ports.ArticleStore, classifications ports.ClassificationStore, threshold int, logger *slog.Logger) *Classifier {
	if threshold <= 0 {
		threshold = DefaultRelevanceThreshold
	}
	return &Classifier{
		chat:            chat,
		articles:        articles,
		classifications: classifications,
		threshold:       threshold,
		maxRetries:      3,
		backoffBase:     time.Second,
		callDelay:       500 * time.Millisecond,
		logger:          logger,
	}
}

type classificationResponse struct {
	Relevance     json.RawMessage `json:"relevance"`
	Category      *string         `json:"category"`
	ProductImpact *string         `json:"product_impact"`
	Summary       *string         `json:"summary"`
}

// Classify asks the model for a verdict on one article, retrying transient
// failures with exponential backoff. Headline is prepended for context and
// article text is truncated to a bounded prefix.
func (c *Classifier) Classify(ctx context.Context, headline, text string) (*domain.Classification, error) {
	fullText := headline
	if text != "" {
		fullText = fmt.Sprintf("Headline: %s\n\n%s", headline, text)
	}
	fullText = truncateText(fullText, maxPromptChars)
	prompt := fmt.Sprintf(classificationPromptTemplate, fullText)

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		response, err := c.chat.Complete(ctx, prompt, classifyMaxTokens)
		if err != nil {
			c.error("classification request failed", "attempt", attempt+1, "error", err)
			if attempt < c.maxRetries-1 {
				if sleepErr := sleepCtx(ctx, c.backoffBase<<attempt); sleepErr != nil {
					return nil, sleepErr
				}
			}
			continue
		}

		if response == "" {
			c.warn("empty classification response", "attempt", attempt+1)
			continue
		}

		parsed, ok := parseClassification(response)
		if !ok {
			c.warn("unparseable classification response", "attempt", attempt+1)
			continue
		}

		parsed.RawResponse = response
		c.info("classified article",
			"relevance", parsed.Relevance, "category", parsed.Category)
		return parsed, nil
	}

	return nil, fmt.Errorf("classification failed after %d attempts", c.maxRetries)
}

// ClassifyAndStore classifies the given articles sequentially with a small
// inter-call delay and stores every successful verdict unconditionally.
// Articles that fail classification are absent from the returned map.
func (c *Classifier) ClassifyAndStore(ctx context.Context, articleIDs []int64) map[int64]domain.Classification {
	results := map[int64]domain.Classification{}

	articles, err := c.articles.ArticlesByIDs(ctx, articleIDs)
	if err != nil {
		c.error("load articles for classification failed", "error", err)
		return results
	}
	if len(articles) == 0 {
		c.warn("no articles found to classify")
		return results
	}

	for i, article := range articles {
		if article.Headline == "" {
			c.warn("skipping article without headline", "article_id", article.ID)
			continue
		}

		classification, err := c.Classify(ctx, article.Headline, article.FullText)
		if err != nil {
			c.error("classification failed", "article_id", article.ID,
				"headline", article.Headline, "error", err)
		} else {
			classification.ArticleID = article.ID
			if _, err := c.classifications.InsertClassification(ctx, *classification); err != nil {
				c.error("store classification failed", "article_id", article.ID, "error", err)
			} else {
				results[article.ID] = *classification
			}
		}

		// Cooperative rate limiting between model calls.
		if i < len(articles)-1 {
			if err := sleepCtx(ctx, c.callDelay); err != nil {
				break
			}
		}
	}

	c.info("classification batch complete", "classified", len(results), "total", len(articles))
	return results
}

// Relevant filters stored verdicts down to those meeting the threshold.
// Filtering is a read-side concern only.
func (c *Classifier) Relevant(results map[int64]domain.Classification) map[int64]domain.Classification {
	relevant := map[int64]domain.Classification{}
	for id, classification := range results {
		if classification.Relevance >= c.threshold {
			relevant[id] = classification
		}
	}
	return relevant
}

// UnclassifiedIDs returns recent articles still awaiting classification.
func (c *Classifier) UnclassifiedIDs(ctx context.Context, limit int) ([]int64, error) {
	return c.articles.UnclassifiedIDs(ctx, limit)
}

// parseClassification decodes the model response and rejects it unless all
// four required keys are present.
func parseClassification(raw string) (*domain.Classification, bool) {
	var resp classificationResponse
	if err := decodeModelJSON(raw, &resp); err != nil {
		return nil, false
	}

	if resp.Relevance == nil || resp.Category == nil || resp.ProductImpact == nil || resp.Summary == nil {
		return nil, false
	}

	return &domain.Classification{
		Relevance:     coerceRelevance(resp.Relevance),
		Category:      *resp.Category,
		ProductImpact: *resp.ProductImpact,
		Summary:       *resp.Summary,
	}, true
}

// coerceRelevance normalizes whatever the model produced into [1,5]:
// numeric strings are parsed, non-numeric input defaults to 3.
func coerceRelevance(raw json.RawMessage) int {
	// Unmarshal treats a JSON null as a no-op, so catch it before the
	// numeric decodes or it would read as 0.
	if string(bytes.TrimSpace(raw)) == "null" {
		return defaultRelevance
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return clampRelevance(n)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return clampRelevance(int(f))
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return clampRelevance(n)
		}
	}

	return defaultRelevance
}

func clampRelevance(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Classifier) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Classifier) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Classifier) error(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
