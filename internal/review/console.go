package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
	"IntelScanner/internal/usecase"
)

const defaultReviewer = "editor"

// Console walks a human editor through every pending article, prompting for
// the three verdict fields with sensible defaults and writing through the
// validated scorer path.
type Console struct {
	store  ports.AssessmentStore
	scorer *usecase.ThreatScorer
	in     *bufio.Scanner
	out    io.Writer
}

// Summary reports what one review session accomplished.
type Summary struct {
	Reviewed  int
	Skipped   int
	Remaining int
}

// NewConsole wires the review surface; in/out are injectable for tests.
func NewConsole(store ports.AssessmentStore, scorer *usecase.ThreatScorer, in io.Reader, out io.Writer) *Console {
	return &Console{
		store:  store,
		scorer: scorer,
		in:     bufio.NewScanner(in),
		out:    out,
	}
}

// Run loops over pending articles until the queue is exhausted or the editor
// quits. Skipped articles stay pending.
func (c *Console) Run(ctx context.Context) (Summary, error) {
	fmt.Fprintln(c.out, "CI Bot - Editor Review Interface")
	fmt.Fprintln(c.out, strings.Repeat("=", 80))

	pending, err := c.store.PendingReviews(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load pending reviews: %w", err)
	}

	if len(pending) == 0 {
		fmt.Fprintln(c.out, "\nNo articles pending review.")
		return Summary{}, nil
	}

	fmt.Fprintf(c.out, "\nFound %d article(s) pending review.\n", len(pending))

	var summary Summary
	for i, article := range pending {
		fmt.Fprintf(c.out, "\n[%d/%d]\n", i+1, len(pending))

		reviewed, quit := c.reviewArticle(ctx, article)
		if reviewed {
			summary.Reviewed++
		} else {
			summary.Skipped++
		}
		if quit {
			break
		}
	}

	summary.Remaining = len(pending) - summary.Reviewed - summary.Skipped

	fmt.Fprintln(c.out, "\n\nReview Summary:")
	fmt.Fprintf(c.out, "  Reviewed: %d\n", summary.Reviewed)
	fmt.Fprintf(c.out, "  Skipped: %d\n", summary.Skipped)
	fmt.Fprintf(c.out, "  Remaining: %d\n", summary.Remaining)

	return summary, nil
}

// reviewArticle prompts for one article; returns whether it was reviewed and
// whether the editor asked to quit.
func (c *Console) reviewArticle(ctx context.Context, article domain.PendingReview) (reviewed, quit bool) {
	c.displayArticle(article)

	fmt.Fprintln(c.out, "\nReview Options:")
	fmt.Fprintf(c.out, "  Threat Levels: %s\n", joinLevels())
	fmt.Fprintf(c.out, "  Product Impact: %s\n", strings.Join(domain.ProductImpacts, ", "))
	fmt.Fprintf(c.out, "  Actions: %s\n", strings.Join(domain.ActionRecommendations, ", "))
	fmt.Fprintln(c.out, "\nEnter 'skip' to skip this article, 'quit' to exit")

	level, control := c.prompt("Threat Level", string(domain.ThreatMedium))
	if control != controlNone {
		return false, control == controlQuit
	}

	defaultImpact := article.ProductImpact
	if _, err := domain.ParseProductImpact(defaultImpact); err != nil {
		defaultImpact = "General"
	}
	impact, control := c.prompt("Product Impact", defaultImpact)
	if control != controlNone {
		return false, control == controlQuit
	}

	action, control := c.prompt("Action Recommendation", "Watch")
	if control != controlNone {
		return false, control == controlQuit
	}

	reviewer, control := c.prompt("Your name/ID", defaultReviewer)
	if control != controlNone {
		return false, control == controlQuit
	}

	if err := c.scorer.Assign(ctx, article.ArticleID, level, impact, action, reviewer); err != nil {
		fmt.Fprintf(c.out, "\n✗ Failed to review article %d: %v\n", article.ArticleID, err)
		return false, false
	}

	fmt.Fprintf(c.out, "\n✓ Successfully reviewed article %d\n", article.ArticleID)
	return true, false
}

func (c *Console) displayArticle(article domain.PendingReview) {
	fmt.Fprintln(c.out, "\n"+strings.Repeat("=", 80))
	fmt.Fprintf(c.out, "Article ID: %d\n", article.ArticleID)
	fmt.Fprintf(c.out, "Headline: %s\n", article.Headline)
	fmt.Fprintf(c.out, "Source: %s\n", article.Source)
	fmt.Fprintf(c.out, "URL: %s\n", article.URL)
	fmt.Fprintf(c.out, "Published: %s\n", orUnknown(article.PubDate))
	fmt.Fprintln(c.out, "\nAI Classification:")
	fmt.Fprintf(c.out, "  Relevance Score: %d/5\n", article.Relevance)
	fmt.Fprintf(c.out, "  Category: %s\n", orUnknown(article.Category))
	fmt.Fprintf(c.out, "  Product Impact: %s\n", orUnknown(article.ProductImpact))
	fmt.Fprintf(c.out, "  Summary: %s\n", orUnknown(article.Summary))
	fmt.Fprintln(c.out, strings.Repeat("=", 80))
}

type control int

const (
	controlNone control = iota
	controlSkip
	controlQuit
)

// prompt reads one value, falling back to the default on empty input and
// recognizing the skip/quit controls at every field.
func (c *Console) prompt(label, defaultValue string) (string, control) {
	fmt.Fprintf(c.out, "%s [%s]: ", label, defaultValue)

	if !c.in.Scan() {
		return "", controlQuit
	}

	value := strings.TrimSpace(c.in.Text())
	switch strings.ToLower(value) {
	case "skip":
		return "", controlSkip
	case "quit":
		return "", controlQuit
	case "":
		return defaultValue, controlNone
	default:
		return value, controlNone
	}
}

func joinLevels() string {
	names := make([]string, 0, len(domain.ThreatLevels))
	for _, level := range domain.ThreatLevels {
		names = append(names, string(level))
	}
	return strings.Join(names, ", ")
}

func orUnknown(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}
