package domain

import "time"

// RawArticle is a feed entry after extraction, before persistence.
type RawArticle struct {
	Headline string
	URL      string
	Source   string
	PubDate  string
	FullText string
}

// Article is one ingested news item keyed by canonical URL. Created by the
// collector and immutable afterwards.
type Article struct {
	ID          int64
	Headline    string
	URL         string
	Source      string
	PubDate     string
	FullText    string
	ProcessedAt time.Time
}

// ArticleRef is the minimal projection used by duplicate matching.
type ArticleRef struct {
	ID       int64
	Headline string
	URL      string
}

// Classification stores the LLM verdict for an article. Written once;
// RawResponse keeps the verbatim model output for audit.
type Classification struct {
	ID            int64
	ArticleID     int64
	Relevance     int
	Category      string
	ProductImpact string
	Summary       string
	RawResponse   string
	CreatedAt     time.Time
}

// PendingReview joins an article with its classification for the review
// surfaces (human editor or auto-reviewer).
type PendingReview struct {
	ArticleID     int64
	Headline      string
	URL           string
	Source        string
	PubDate       string
	FullText      string
	Relevance     int
	Category      string
	ProductImpact string
	Summary       string
}
