package domain

import "time"

// DeliveryType distinguishes outbound message kinds.
type DeliveryType string

const (
	DeliveryDailyDigest   DeliveryType = "daily_digest"
	DeliveryWeeklySummary DeliveryType = "weekly_summary"
)

// Delivery records one outbound send so the same articles are not re-sent.
// ArticleIDs is denormalized by value, not a foreign key.
type Delivery struct {
	ID         int64
	Type       DeliveryType
	Date       time.Time
	Channel    string
	MessageID  string
	ArticleIDs []int64
	CreatedAt  time.Time
}

// WeeklyStats aggregates counts over a Monday-Friday window.
type WeeklyStats struct {
	TotalScanned    int
	Classified      int
	HighPriority    int
	ImpactBreakdown map[string]int
	LevelBreakdown  map[string]int
}

// ReviewStats summarizes one auto-review batch.
type ReviewStats struct {
	Reviewed int
	Failed   int
	Total    int
}

// PipelineStats summarizes one scheduled pipeline run. Failures surface as
// reduced counts rather than errors.
type PipelineStats struct {
	Fetched      int
	Stored       int
	Classified   int
	Relevant     int
	Reviewed     int
	ReviewFailed int
	Alerts       int
}
