package slack

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"IntelScanner/internal/domain"
)

const summaryLimit = 200

func threatEmoji(level domain.ThreatLevel) string {
	switch level {
	case domain.ThreatHigh:
		return "🔴"
	case domain.ThreatMedium:
		return "🟡"
	case domain.ThreatLow:
		return "🟢"
	case domain.ThreatOpportunity:
		return "🔵"
	default:
		return "⚪"
	}
}

func impactLabel(impact string) string {
	switch impact {
	case "AMP":
		return "AMP Threat"
	case "Zero-Day":
		return "Zero-Day Watch"
	case "Both":
		return "AMP + Zero-Day"
	default:
		return "Market Validation"
	}
}

// truncateSummary cuts s to at most max bytes, backing up to a rune boundary
// so the Block Kit payload stays valid UTF-8, and marks the cut with "...".
func truncateSummary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func digestBlocks(date time.Time, articles []domain.DigestArticle) []slack.Block {
	blocks := []slack.Block{
		headerBlock(fmt.Sprintf("🤖 CI-Bot Daily Brief | %s", date.Format("Mon, Jan 02, 2006"))),
		slack.NewDividerBlock(),
	}

	highCount := 0
	for _, article := range articles {
		if article.Level == domain.ThreatHigh {
			highCount++
		}

		summary := article.Summary
		if summary == "" {
			summary = "No summary available"
		}
		summary = truncateSummary(summary, summaryLimit)

		action := article.Action
		if action == "" {
			action = "Watch"
		}

		text := fmt.Sprintf("%s %s | %s\n*%s*\n%s\n⚡ Action: %s | 📰 %s",
			threatEmoji(article.Level), article.Level, impactLabel(article.Impact),
			article.Headline, summary, action, article.Source)

		blocks = append(blocks, sectionBlock(text))
		if article.URL != "" {
			blocks = append(blocks, linkButtonBlock(article.URL, "Read Article", ""))
		}
		blocks = append(blocks, slack.NewDividerBlock())
	}

	blocks = append(blocks, sectionBlock(fmt.Sprintf(
		"📊 Today: %d surfaced | %d high priority", len(articles), highCount)))

	return blocks
}

func summaryBlocks(stats domain.WeeklyStats, start, end time.Time) []slack.Block {
	dateRange := fmt.Sprintf("%s - %s", start.Format("Jan 02"), end.Format("Jan 02, 2006"))

	volume := fmt.Sprintf("*📈 WEEKLY VOLUME*\nArticles Scanned: %d | Relevant: %d | High Priority: %d",
		stats.TotalScanned, stats.Classified, stats.HighPriority)

	threats := "*⚔️ THREAT SUMMARY*\n"
	for _, impact := range domain.ProductImpacts {
		if count, ok := stats.ImpactBreakdown[impact]; ok {
			threats += fmt.Sprintf("• %s: %d items\n", impact, count)
		}
	}

	levels := "*🚦 THREAT LEVELS*\n"
	for _, level := range domain.ThreatLevels {
		if count, ok := stats.LevelBreakdown[string(level)]; ok {
			levels += fmt.Sprintf("%s %s: %d\n", threatEmoji(level), level, count)
		}
	}

	return []slack.Block{
		headerBlock(fmt.Sprintf("📊 CI-Bot Weekly Summary | %s", dateRange)),
		slack.NewDividerBlock(),
		sectionBlock(volume),
		slack.NewDividerBlock(),
		sectionBlock(threats),
		slack.NewDividerBlock(),
		sectionBlock(levels),
	}
}

func alertBlocks(article domain.DigestArticle) []slack.Block {
	summary := article.Summary
	if summary == "" {
		summary = "No summary available"
	}

	action := article.Action
	if action == "" {
		action = "Urgent Response"
	}

	text := fmt.Sprintf("*%s*\n\n%s\n\n*Product Impact:* %s\n*Action Required:* %s",
		article.Headline, summary, article.Impact, action)

	blocks := []slack.Block{
		headerBlock("🚨 HIGH PRIORITY ALERT"),
		slack.NewDividerBlock(),
		sectionBlock(text),
	}

	if article.URL != "" {
		blocks = append(blocks, linkButtonBlock(article.URL, "Read Article", slack.StyleDanger))
	}

	return blocks
}

func headerBlock(text string) slack.Block {
	return slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, text, true, false))
}

func sectionBlock(text string) slack.Block {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

func linkButtonBlock(url, label string, style slack.Style) slack.Block {
	button := slack.NewButtonBlockElement("", "",
		slack.NewTextBlockObject(slack.PlainTextType, label, false, false))
	button.URL = url
	if style != "" {
		button.Style = style
	}
	return slack.NewActionBlock("", button)
}
