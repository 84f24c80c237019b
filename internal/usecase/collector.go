package usecase

import (
	"context"
	"log/slog"
	"time"

	"IntelScanner/internal/config"
	"IntelScanner/internal/dedup"
	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
)

// DefaultHoursBack bounds the recency window for collected entries.
const DefaultHoursBack = 24

// Collector fetches configured feeds, filters entries by recency,
// deduplicates them against the store, and persists the survivors.
type Collector struct {
	reader ports.FeedReader
	dedup  *dedup.Deduplicator
	store  ports.ArticleStore
	feeds  []config.FeedConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewCollector wires the feed reader, deduplicator, and article store.
func NewCollector(reader ports.FeedReader, dd *dedup.Deduplicator, store ports.ArticleStore, feeds []config.FeedConfig, logger *slog.Logger) *Collector {
	return &Collector{
		reader: reader,
		dedup:  dd,
		store:  store,
		feeds:  feeds,
		now:    time.Now,
		logger: logger,
	}
}

// Fetch collects new articles across every configured source. A failure in
// one source is logged and skipped; the batch never aborts. Entries older
// than hoursBack are dropped only when their timestamp parses; entries
// without a usable date are kept.
func (c *Collector) Fetch(ctx context.Context, hoursBack int) []domain.RawArticle {
	if hoursBack <= 0 {
		hoursBack = DefaultHoursBack
	}
	cutoff := c.now().Add(-time.Duration(hoursBack) * time.Hour)

	var collected []domain.RawArticle
	for _, feed := range c.feeds {
		c.info("fetching feed", "source", feed.Name, "url", feed.URL)

		entries, err := c.reader.Read(ctx, feed.Name, feed.URL)
		if err != nil {
			c.error("feed fetch failed", "source", feed.Name, "error", err)
			continue
		}

		fresh := 0
		for _, entry := range entries {
			if tooOld(entry.PubDate, cutoff) {
				continue
			}

			isDup, _, err := c.dedup.IsDuplicate(ctx, entry.Headline, entry.URL)
			if err != nil {
				c.error("duplicate check failed", "url", entry.URL, "error", err)
				continue
			}
			if isDup {
				c.debug("skipping duplicate", "headline", entry.Headline)
				continue
			}

			collected = append(collected, entry)
			fresh++
		}

		c.info("processed feed", "source", feed.Name, "new_articles", fresh)
	}

	c.info("collection complete", "total_articles", len(collected))
	return collected
}

// Store persists fetched articles, re-checking duplicates immediately before
// each insert. Returns the ids of both newly inserted rows and the existing
// rows that duplicate candidates matched.
func (c *Collector) Store(ctx context.Context, articles []domain.RawArticle) []int64 {
	var ids []int64
	for _, article := range articles {
		isDup, existing, err := c.dedup.IsDuplicate(ctx, article.Headline, article.URL)
		if err != nil {
			c.error("duplicate re-check failed", "url", article.URL, "error", err)
			continue
		}
		if isDup {
			if existing != nil {
				ids = append(ids, existing.ID)
			}
			continue
		}

		id, err := c.store.InsertArticle(ctx, article)
		if err != nil {
			c.error("store article failed", "headline", article.Headline, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// tooOld reports whether the publication date parses and falls before the
// cutoff. Unparseable or absent dates fail open.
func tooOld(pubDate string, cutoff time.Time) bool {
	if pubDate == "" {
		return false
	}
	published, err := time.Parse(time.RFC3339, pubDate)
	if err != nil {
		return false
	}
	return published.Before(cutoff)
}

func (c *Collector) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Collector) error(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}

func (c *Collector) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
