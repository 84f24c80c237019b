package ports

import (
	"context"
	"time"

	"IntelScanner/internal/domain"
)

// FeedReader pulls and extracts entries from one syndication source.
type FeedReader interface {
	Read(ctx context.Context, source, feedURL string) ([]domain.RawArticle, error)
}

// ChatClient sends a single user-role prompt to an LLM and returns the
// raw completion text.
type ChatClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// DuplicateIndex exposes the stored article surface scanned by deduplication.
type DuplicateIndex interface {
	ArticleRefByURL(ctx context.Context, url string) (*domain.ArticleRef, error)
	ArticleRefs(ctx context.Context) ([]domain.ArticleRef, error)
}

// ArticleStore persists collected articles.
type ArticleStore interface {
	DuplicateIndex
	InsertArticle(ctx context.Context, article domain.RawArticle) (int64, error)
	ArticlesByIDs(ctx context.Context, ids []int64) ([]domain.Article, error)
	UnclassifiedIDs(ctx context.Context, limit int) ([]int64, error)
}

// ClassificationStore persists LLM classifications.
type ClassificationStore interface {
	InsertClassification(ctx context.Context, c domain.Classification) (int64, error)
}

// AssessmentStore persists threat assessments keyed uniquely by article.
type AssessmentStore interface {
	UpsertAssessment(ctx context.Context, a domain.ThreatAssessment) error
	AssessmentByArticle(ctx context.Context, articleID int64) (*domain.ThreatAssessment, error)
	PendingReviews(ctx context.Context) ([]domain.PendingReview, error)
}

// DeliveryStore feeds and records outbound digests.
type DeliveryStore interface {
	DigestCandidates(ctx context.Context, limit int) ([]domain.DigestArticle, error)
	ReviewedArticle(ctx context.Context, articleID int64) (*domain.DigestArticle, error)
	RecentHighPriority(ctx context.Context, since time.Time) ([]int64, error)
	WeeklyStats(ctx context.Context, start, end time.Time) (domain.WeeklyStats, error)
	RecordDelivery(ctx context.Context, d domain.Delivery) error
}

// Messenger posts structured messages to a named channel and returns the
// provider-assigned message identifier.
type Messenger interface {
	SendDigest(ctx context.Context, channel string, date time.Time, articles []domain.DigestArticle) (string, error)
	SendWeeklySummary(ctx context.Context, channel string, stats domain.WeeklyStats, start, end time.Time) (string, error)
	SendAlert(ctx context.Context, channel string, article domain.DigestArticle) (string, error)
}

// Scheduler drives recurring jobs from cron expressions.
type Scheduler interface {
	AddJob(spec string, job func()) error
	Start()
	Stop(ctx context.Context) error
}
