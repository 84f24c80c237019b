package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
)

const (
	// maxBodyChars caps extracted article text before persistence.
	maxBodyChars = 10000
	// minBodyChars below which the page-scrape fallback is attempted.
	minBodyChars = 100

	userAgent = "IntelScanner/1.0"
)

// contentSelectors are tried in order on scraped pages; the first non-empty
// match wins, else the whole body is used.
var contentSelectors = []string{
	"article",
	".article-content",
	".post-content",
	".entry-content",
	"main",
	".content",
}

// Reader fetches a syndication feed and extracts one RawArticle per entry,
// falling back to a live page scrape when the feed carries no usable body.
type Reader struct {
	parser *gofeed.Parser
	client *http.Client
	logger *slog.Logger
}

var _ ports.FeedReader = (*Reader)(nil)

// NewReader wires an HTTP client shared by feed fetches and page scrapes.
func NewReader(client *http.Client, logger *slog.Logger) *Reader {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &Reader{parser: parser, client: client, logger: logger}
}

// Read parses the feed and returns every entry that carries both a title and
// a link. Entries without either are discarded; scrape failures leave the
// article with empty text rather than dropping it.
func (r *Reader) Read(ctx context.Context, source, feedURL string) ([]domain.RawArticle, error) {
	parsed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	articles := make([]domain.RawArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		headline := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if headline == "" || link == "" {
			r.warn("feed entry missing headline or url", "source", source)
			continue
		}

		articles = append(articles, domain.RawArticle{
			Headline: headline,
			URL:      link,
			Source:   source,
			PubDate:  resolvePubDate(item),
			FullText: r.resolveBody(ctx, item, link),
		})
	}

	return articles, nil
}

// resolvePubDate prefers the structured parsed date, then the raw published
// string; an absent date does not exclude the entry.
func resolvePubDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	return strings.TrimSpace(item.Published)
}

func (r *Reader) resolveBody(ctx context.Context, item *gofeed.Item, link string) string {
	text := strings.TrimSpace(item.Content)
	if text == "" {
		text = strings.TrimSpace(item.Description)
	}

	if len(text) < minBodyChars {
		scraped, err := r.scrape(ctx, link)
		if err != nil {
			r.warn("content scrape failed", "url", link, "error", err)
		} else if scraped != "" {
			text = scraped
		}
	}

	if len(text) > maxBodyChars {
		text = text[:maxBodyChars]
	}
	return text
}

// scrape fetches the article page and extracts text from the first matching
// content container, falling back to the whole body.
func (r *Reader) scrape(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	doc.Find("script, style").Remove()

	var container *goquery.Selection
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			container = sel
			break
		}
	}
	if container == nil {
		container = doc.Find("body").First()
	}
	if container.Length() == 0 {
		return "", nil
	}

	text := strings.Join(strings.Fields(container.Text()), " ")
	if len(text) > maxBodyChars {
		text = text[:maxBodyChars]
	}
	return text, nil
}

func (r *Reader) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
