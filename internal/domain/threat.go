package domain

import (
	"fmt"
	"strings"
	"time"
)

// ThreatLevel grades the competitive severity of an article.
type ThreatLevel string

const (
	ThreatHigh        ThreatLevel = "HIGH"
	ThreatMedium      ThreatLevel = "MEDIUM"
	ThreatLow         ThreatLevel = "LOW"
	ThreatOpportunity ThreatLevel = "OPPORTUNITY"
)

// ThreatLevels lists all accepted values in severity order.
var ThreatLevels = []ThreatLevel{ThreatHigh, ThreatMedium, ThreatLow, ThreatOpportunity}

// ParseThreatLevel normalizes input to upper case and validates it.
func ParseThreatLevel(value string) (ThreatLevel, error) {
	level := ThreatLevel(strings.ToUpper(strings.TrimSpace(value)))
	for _, known := range ThreatLevels {
		if level == known {
			return level, nil
		}
	}
	return "", fmt.Errorf("invalid threat level %q", value)
}

// SeverityRank orders threat levels for digest sorting; unknown values sink last.
func (t ThreatLevel) SeverityRank() int {
	switch t {
	case ThreatHigh:
		return 1
	case ThreatMedium:
		return 2
	case ThreatLow:
		return 3
	case ThreatOpportunity:
		return 4
	default:
		return 5
	}
}

// ProductImpacts lists accepted product impact values (exact match).
var ProductImpacts = []string{"AMP", "Zero-Day", "Both", "General"}

// ParseProductImpact validates the value against the known set.
func ParseProductImpact(value string) (string, error) {
	for _, known := range ProductImpacts {
		if value == known {
			return value, nil
		}
	}
	return "", fmt.Errorf("invalid product impact %q", value)
}

// ActionRecommendations lists accepted editorial actions (exact match).
var ActionRecommendations = []string{"Watch", "Discuss", "Urgent Response"}

// ParseActionRecommendation validates the value against the known set.
func ParseActionRecommendation(value string) (string, error) {
	for _, known := range ActionRecommendations {
		if value == known {
			return value, nil
		}
	}
	return "", fmt.Errorf("invalid action recommendation %q", value)
}

// ThreatAssessment is the threat verdict for an article. At most one row per
// article exists; re-review overwrites the previous verdict in place.
type ThreatAssessment struct {
	ArticleID  int64
	Level      ThreatLevel
	Impact     string
	Action     string
	ReviewedBy string
	ReviewedAt time.Time
}

// DigestArticle is an article joined with classification and assessment,
// ready for outbound delivery.
type DigestArticle struct {
	ID       int64
	Headline string
	URL      string
	Source   string
	PubDate  string
	Summary  string
	Category string
	Impact   string
	Level    ThreatLevel
	Action   string
}
