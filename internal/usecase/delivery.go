package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
)

// DefaultMaxDailyItems caps how many articles one digest carries.
const DefaultMaxDailyItems = 5

// ErrNotHighPriority is returned when an alert is requested for an article
// whose current threat level is not HIGH.
var ErrNotHighPriority = errors.New("article is not high priority")

// Delivery renders and sends digests, summaries, and alerts, recording every
// successful send so the same articles are not re-delivered.
type Delivery struct {
	store             ports.DeliveryStore
	messenger         ports.Messenger
	leadershipChannel string
	alertsChannel     string
	maxItems          int
	now               func() time.Time
	logger            *slog.Logger
}

// NewDelivery wires the delivery store and messenger; maxItems <= 0 falls
// back to the default cap.
func NewDelivery(store ports.DeliveryStore, messenger ports.Messenger, leadershipChannel, alertsChannel string, maxItems int, logger *slog.Logger) *Delivery {
	if maxItems <= 0 {
		maxItems = DefaultMaxDailyItems
	}
	return &Delivery{
		store:             store,
		messenger:         messenger,
		leadershipChannel: leadershipChannel,
		alertsChannel:     alertsChannel,
		maxItems:          maxItems,
		now:               time.Now,
		logger:            logger,
	}
}

// SendDigest delivers the daily digest to the leadership channel. With no
// eligible articles nothing is sent and no delivery is recorded.
func (d *Delivery) SendDigest(ctx context.Context) error {
	articles, err := d.store.DigestCandidates(ctx, d.maxItems)
	if err != nil {
		return fmt.Errorf("load digest candidates: %w", err)
	}

	if len(articles) == 0 {
		d.info("no articles available for daily digest")
		return nil
	}

	messageID, err := d.messenger.SendDigest(ctx, d.leadershipChannel, d.now(), articles)
	if err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	ids := make([]int64, 0, len(articles))
	for _, article := range articles {
		ids = append(ids, article.ID)
	}

	err = d.store.RecordDelivery(ctx, domain.Delivery{
		Type:       domain.DeliveryDailyDigest,
		Date:       d.now(),
		Channel:    d.leadershipChannel,
		MessageID:  messageID,
		ArticleIDs: ids,
	})
	if err != nil {
		return fmt.Errorf("record digest delivery: %w", err)
	}

	d.info("sent daily digest", "articles", len(articles))
	return nil
}

// SendWeeklySummary aggregates the Monday-Friday window and delivers it to
// the leadership channel.
func (d *Delivery) SendWeeklySummary(ctx context.Context) error {
	start, end := weekWindow(d.now())

	stats, err := d.store.WeeklyStats(ctx, start, end)
	if err != nil {
		return fmt.Errorf("load weekly stats: %w", err)
	}

	messageID, err := d.messenger.SendWeeklySummary(ctx, d.leadershipChannel, stats, start, end)
	if err != nil {
		return fmt.Errorf("send weekly summary: %w", err)
	}

	err = d.store.RecordDelivery(ctx, domain.Delivery{
		Type:      domain.DeliveryWeeklySummary,
		Date:      d.now(),
		Channel:   d.leadershipChannel,
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("record summary delivery: %w", err)
	}

	d.info("sent weekly summary", "scanned", stats.TotalScanned)
	return nil
}

// SendAlert posts an immediate notification to the alerts channel. Any
// article whose current threat level is not exactly HIGH is rejected before
// delivery is attempted.
func (d *Delivery) SendAlert(ctx context.Context, articleID int64) error {
	article, err := d.store.ReviewedArticle(ctx, articleID)
	if err != nil {
		return fmt.Errorf("load article: %w", err)
	}
	if article == nil {
		return fmt.Errorf("article %d is not fully reviewed", articleID)
	}
	if article.Level != domain.ThreatHigh {
		d.warn("alert rejected", "article_id", articleID, "level", article.Level)
		return fmt.Errorf("%w: article %d is %s", ErrNotHighPriority, articleID, article.Level)
	}

	if _, err := d.messenger.SendAlert(ctx, d.alertsChannel, *article); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}

	d.info("sent high priority alert", "article_id", articleID)
	return nil
}

// SendRecentAlerts notifies the alerts channel about every article assessed
// HIGH since the given time. Failures for single articles are logged and do
// not stop the loop; the sent count is returned.
func (d *Delivery) SendRecentAlerts(ctx context.Context, since time.Time) (int, error) {
	ids, err := d.store.RecentHighPriority(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("load high priority articles: %w", err)
	}

	sent := 0
	for _, id := range ids {
		if err := d.SendAlert(ctx, id); err != nil {
			d.warn("alert delivery failed", "article_id", id, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// weekWindow returns the Monday 00:00 to Friday 23:59:59 span of the week
// containing now.
func weekWindow(now time.Time) (time.Time, time.Time) {
	daysSinceMonday := int(now.Weekday()) - int(time.Monday)
	if daysSinceMonday < 0 {
		daysSinceMonday += 7
	}

	year, month, day := now.AddDate(0, 0, -daysSinceMonday).Date()
	monday := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	friday := monday.AddDate(0, 0, 4).Add(24*time.Hour - time.Second)
	return monday, friday
}

func (d *Delivery) info(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Delivery) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
