package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"IntelScanner/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "intel.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewSQLiteRepository(db, nil)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func insertTestArticle(t *testing.T, repo *SQLiteRepository, n int) int64 {
	t.Helper()

	id, err := repo.InsertArticle(context.Background(), domain.RawArticle{
		Headline: fmt.Sprintf("Headline %d", n),
		URL:      fmt.Sprintf("https://example.com/article-%d", n),
		Source:   "adexchanger",
		PubDate:  "2026-08-28T06:00:00Z",
		FullText: "body text",
	})
	if err != nil {
		t.Fatalf("insert article: %v", err)
	}
	return id
}

func insertTestClassification(t *testing.T, repo *SQLiteRepository, articleID int64) {
	t.Helper()

	_, err := repo.InsertClassification(context.Background(), domain.Classification{
		ArticleID:     articleID,
		Relevance:     4,
		Category:      "Campaign Automation",
		ProductImpact: "AMP",
		Summary:       "Two sentences.",
		RawResponse:   "{}",
	})
	if err != nil {
		t.Fatalf("insert classification: %v", err)
	}
}

func upsertTestAssessment(t *testing.T, repo *SQLiteRepository, articleID int64, level domain.ThreatLevel, reviewedAt time.Time) {
	t.Helper()

	err := repo.UpsertAssessment(context.Background(), domain.ThreatAssessment{
		ArticleID:  articleID,
		Level:      level,
		Impact:     "AMP",
		Action:     "Watch",
		ReviewedBy: "editor",
		ReviewedAt: reviewedAt,
	})
	if err != nil {
		t.Fatalf("upsert assessment: %v", err)
	}
}

func TestInsertArticleReturnsExistingIDOnURLConflict(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	first := insertTestArticle(t, repo, 1)

	second, err := repo.InsertArticle(ctx, domain.RawArticle{
		Headline: "Different headline",
		URL:      "https://example.com/article-1",
		Source:   "digiday",
	})
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}

	if second != first {
		t.Fatalf("expected existing id %d, got %d", first, second)
	}

	refs, err := repo.ArticleRefs(ctx)
	if err != nil {
		t.Fatalf("article refs: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected 1 stored article, got %d", len(refs))
	}
}

func TestArticleRefByURLMissing(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)

	ref, err := repo.ArticleRefByURL(context.Background(), "https://example.com/missing")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ref != nil {
		t.Fatalf("expected nil ref, got %+v", ref)
	}
}

func TestUnclassifiedIDs(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)

	a := insertTestArticle(t, repo, 1)
	b := insertTestArticle(t, repo, 2)
	insertTestClassification(t, repo, a)

	ids, err := repo.UnclassifiedIDs(context.Background(), 10)
	if err != nil {
		t.Fatalf("unclassified ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != b {
		t.Fatalf("expected [%d], got %v", b, ids)
	}
}

func TestUpsertAssessmentKeepsSingleRow(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	id := insertTestArticle(t, repo, 1)
	upsertTestAssessment(t, repo, id, domain.ThreatLow, time.Now().UTC())
	upsertTestAssessment(t, repo, id, domain.ThreatHigh, time.Now().UTC())

	got, err := repo.AssessmentByArticle(ctx, id)
	if err != nil {
		t.Fatalf("assessment by article: %v", err)
	}
	if got == nil || got.Level != domain.ThreatHigh {
		t.Fatalf("expected HIGH after re-review, got %+v", got)
	}
}

func TestPendingReviewsExcludesAssessed(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	unreviewed := insertTestArticle(t, repo, 1)
	reviewed := insertTestArticle(t, repo, 2)
	insertTestArticle(t, repo, 3) // never classified, must not appear

	insertTestClassification(t, repo, unreviewed)
	insertTestClassification(t, repo, reviewed)
	upsertTestAssessment(t, repo, reviewed, domain.ThreatMedium, time.Now().UTC())

	pending, err := repo.PendingReviews(ctx)
	if err != nil {
		t.Fatalf("pending reviews: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}
	got := pending[0]
	if got.ArticleID != unreviewed {
		t.Fatalf("expected article %d, got %d", unreviewed, got.ArticleID)
	}
	if got.Relevance != 4 || got.Category != "Campaign Automation" {
		t.Fatalf("classification not joined: %+v", got)
	}
}

func TestDigestCandidatesOrderingAndWindow(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	low := insertTestArticle(t, repo, 1)
	high := insertTestArticle(t, repo, 2)
	stale := insertTestArticle(t, repo, 3)

	for _, id := range []int64{low, high, stale} {
		insertTestClassification(t, repo, id)
	}
	upsertTestAssessment(t, repo, low, domain.ThreatLow, now)
	upsertTestAssessment(t, repo, high, domain.ThreatHigh, now)
	upsertTestAssessment(t, repo, stale, domain.ThreatHigh, now.AddDate(0, 0, -5))

	got, err := repo.DigestCandidates(ctx, 5)
	if err != nil {
		t.Fatalf("digest candidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != high || got[1].ID != low {
		t.Fatalf("severity ordering broken: %v %v", got[0].ID, got[1].ID)
	}
	if got[0].Level != domain.ThreatHigh {
		t.Fatalf("unexpected level: %s", got[0].Level)
	}
}

func TestDigestCandidatesExcludesDelivered(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	sent := insertTestArticle(t, repo, 1)
	fresh := insertTestArticle(t, repo, 2)
	for _, id := range []int64{sent, fresh} {
		insertTestClassification(t, repo, id)
		upsertTestAssessment(t, repo, id, domain.ThreatMedium, now)
	}

	err := repo.RecordDelivery(ctx, domain.Delivery{
		Type:       domain.DeliveryDailyDigest,
		Date:       now,
		Channel:    "leadership",
		MessageID:  "ts-1",
		ArticleIDs: []int64{sent},
	})
	if err != nil {
		t.Fatalf("record delivery: %v", err)
	}

	got, err := repo.DigestCandidates(ctx, 5)
	if err != nil {
		t.Fatalf("digest candidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != fresh {
		t.Fatalf("delivered article not excluded: %+v", got)
	}
}

func TestDigestCandidatesHonorsLimit(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 1; i <= 7; i++ {
		id := insertTestArticle(t, repo, i)
		insertTestClassification(t, repo, id)
		upsertTestAssessment(t, repo, id, domain.ThreatMedium, now)
	}

	got, err := repo.DigestCandidates(ctx, 5)
	if err != nil {
		t.Fatalf("digest candidates: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(got))
	}
}

func TestReviewedArticleRequiresFullJoin(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	id := insertTestArticle(t, repo, 1)

	got, err := repo.ReviewedArticle(ctx, id)
	if err != nil {
		t.Fatalf("reviewed article: %v", err)
	}
	if got != nil {
		t.Fatal("article without classification and assessment must be nil")
	}

	insertTestClassification(t, repo, id)
	upsertTestAssessment(t, repo, id, domain.ThreatHigh, time.Now().UTC())

	got, err = repo.ReviewedArticle(ctx, id)
	if err != nil {
		t.Fatalf("reviewed article: %v", err)
	}
	if got == nil || got.Level != domain.ThreatHigh {
		t.Fatalf("unexpected reviewed article: %+v", got)
	}
}

func TestRecentHighPriority(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	fresh := insertTestArticle(t, repo, 1)
	old := insertTestArticle(t, repo, 2)
	medium := insertTestArticle(t, repo, 3)

	upsertTestAssessment(t, repo, fresh, domain.ThreatHigh, now)
	upsertTestAssessment(t, repo, old, domain.ThreatHigh, now.Add(-2*time.Hour))
	upsertTestAssessment(t, repo, medium, domain.ThreatMedium, now)

	ids, err := repo.RecentHighPriority(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("recent high priority: %v", err)
	}
	if len(ids) != 1 || ids[0] != fresh {
		t.Fatalf("expected [%d], got %v", fresh, ids)
	}
}

func TestWeeklyStats(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	a := insertTestArticle(t, repo, 1)
	b := insertTestArticle(t, repo, 2)
	insertTestClassification(t, repo, a)
	upsertTestAssessment(t, repo, a, domain.ThreatHigh, now)
	upsertTestAssessment(t, repo, b, domain.ThreatLow, now)

	stats, err := repo.WeeklyStats(ctx, now.Add(-24*time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("weekly stats: %v", err)
	}

	if stats.TotalScanned != 2 {
		t.Fatalf("expected 2 scanned, got %d", stats.TotalScanned)
	}
	if stats.Classified != 1 {
		t.Fatalf("expected 1 classified, got %d", stats.Classified)
	}
	if stats.HighPriority != 1 {
		t.Fatalf("expected 1 high priority, got %d", stats.HighPriority)
	}
	if stats.LevelBreakdown["HIGH"] != 1 || stats.LevelBreakdown["LOW"] != 1 {
		t.Fatalf("unexpected level breakdown: %v", stats.LevelBreakdown)
	}
	if stats.ImpactBreakdown["AMP"] != 2 {
		t.Fatalf("unexpected impact breakdown: %v", stats.ImpactBreakdown)
	}
}
