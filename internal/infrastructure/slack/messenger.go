package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"

	"IntelScanner/internal/config"
	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
)

// Sentinel errors distinguishing configuration problems from transient
// delivery faults. Both categories come back from the Slack API as plain
// error strings, but only the transient kind is worth retrying.
var (
	ErrConfiguration = errors.New("slack configuration error")
	ErrChannelAccess = errors.New("slack channel access error")
)

var configErrorCodes = map[string]bool{
	"invalid_auth":     true,
	"account_inactive": true,
	"token_revoked":    true,
	"not_authed":       true,
	"missing_scope":    true,
}

var channelErrorCodes = map[string]bool{
	"channel_not_found": true,
	"not_in_channel":    true,
	"is_archived":       true,
}

// Messenger posts Block Kit messages to Slack channels.
type Messenger struct {
	api    *slack.Client
	logger *slog.Logger
}

var _ ports.Messenger = (*Messenger)(nil)

// NewMessenger validates the bot token eagerly and wires the API client.
func NewMessenger(cfg config.SlackConfig, logger *slog.Logger) (*Messenger, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("%w: bot token is required", ErrConfiguration)
	}
	return &Messenger{api: slack.New(cfg.BotToken), logger: logger}, nil
}

// SendDigest posts the daily digest and returns the message timestamp.
func (m *Messenger) SendDigest(ctx context.Context, channel string, date time.Time, articles []domain.DigestArticle) (string, error) {
	fallback := fmt.Sprintf("CI-Bot Daily Brief - %d articles", len(articles))
	return m.post(ctx, channel, digestBlocks(date, articles), fallback)
}

// SendWeeklySummary posts aggregate weekly stats.
func (m *Messenger) SendWeeklySummary(ctx context.Context, channel string, stats domain.WeeklyStats, start, end time.Time) (string, error) {
	fallback := fmt.Sprintf("CI-Bot Weekly Summary - %d articles scanned", stats.TotalScanned)
	return m.post(ctx, channel, summaryBlocks(stats, start, end), fallback)
}

// SendAlert posts an immediate high-priority notification with a channel
// mention in the fallback text.
func (m *Messenger) SendAlert(ctx context.Context, channel string, article domain.DigestArticle) (string, error) {
	fallback := fmt.Sprintf("<!channel> HIGH PRIORITY ALERT: %s", article.Headline)
	return m.post(ctx, channel, alertBlocks(article), fallback)
}

func (m *Messenger) post(ctx context.Context, channel string, blocks []slack.Block, fallback string) (string, error) {
	_, ts, err := m.api.PostMessageContext(ctx, channel,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(fallback, false),
	)
	if err != nil {
		return "", classifyErr(channel, err)
	}

	m.info("sent message", "channel", channel)
	return ts, nil
}

// classifyErr maps well-known Slack API error codes onto the sentinel
// errors so callers can tell configuration problems from transient faults.
func classifyErr(channel string, err error) error {
	code := err.Error()
	switch {
	case configErrorCodes[code]:
		return fmt.Errorf("%w: %s", ErrConfiguration, code)
	case channelErrorCodes[code]:
		return fmt.Errorf("%w: %s on %q", ErrChannelAccess, code, channel)
	default:
		return fmt.Errorf("post to %q: %w", channel, err)
	}
}

func (m *Messenger) info(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}
