package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
)

// timeFormat matches SQLite CURRENT_TIMESTAMP so stored values compare
// cleanly with datetime('now', ...) expressions. All values are UTC.
const timeFormat = "2006-01-02 15:04:05"

// SQLiteRepository persists the full pipeline state: articles,
// classifications, threat assessments, and delivery records.
type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ ports.ArticleStore = (*SQLiteRepository)(nil)
var _ ports.ClassificationStore = (*SQLiteRepository)(nil)
var _ ports.AssessmentStore = (*SQLiteRepository)(nil)
var _ ports.DeliveryStore = (*SQLiteRepository)(nil)

// Open creates the database file (and parent directory) if needed.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return db, nil
}

// NewSQLiteRepository wires a sql.DB implementation.
func NewSQLiteRepository(db *sql.DB, logger *slog.Logger) *SQLiteRepository {
	return &SQLiteRepository{db: db, logger: logger}
}

// Migrate creates the schema idempotently.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	r.info("database initialized")
	return nil
}

// InsertArticle stores a new article and returns its id. A URL conflict is
// recovered locally: the existing row's id is returned instead of an error.
func (r *SQLiteRepository) InsertArticle(ctx context.Context, article domain.RawArticle) (int64, error) {
	query, args, err := sq.Insert("articles").
		Columns("headline", "url", "source", "pub_date", "full_text").
		Values(article.Headline, article.URL, article.Source, article.PubDate, article.FullText).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		existing, lookupErr := r.ArticleRefByURL(ctx, article.URL)
		if lookupErr == nil && existing != nil {
			r.warn("article already exists", "url", article.URL)
			return existing.ID, nil
		}
		return 0, fmt.Errorf("insert article: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	r.info("inserted article", "id", id, "headline", truncate(article.Headline, 50))
	return id, nil
}

// ArticleRefByURL returns the stored article with an identical URL, or nil.
func (r *SQLiteRepository) ArticleRefByURL(ctx context.Context, url string) (*domain.ArticleRef, error) {
	query, args, err := sq.Select("id", "headline", "url").
		From("articles").
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var ref domain.ArticleRef
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&ref.ID, &ref.Headline, &ref.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select article by url: %w", err)
	}

	return &ref, nil
}

// ArticleRefs returns id/headline/url for every stored article.
func (r *SQLiteRepository) ArticleRefs(ctx context.Context) ([]domain.ArticleRef, error) {
	query, args, err := sq.Select("id", "headline", "url").From("articles").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	defer rows.Close()

	var refs []domain.ArticleRef
	for rows.Next() {
		var ref domain.ArticleRef
		if err := rows.Scan(&ref.ID, &ref.Headline, &ref.URL); err != nil {
			return nil, fmt.Errorf("scan article ref: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return refs, nil
}

// ArticlesByIDs loads full article rows for the given ids.
func (r *SQLiteRepository) ArticlesByIDs(ctx context.Context, ids []int64) ([]domain.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sq.Select("id", "headline", "url", "source",
		"COALESCE(pub_date, '')", "COALESCE(full_text, '')").
		From("articles").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.Headline, &a.URL, &a.Source, &a.PubDate, &a.FullText); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

// UnclassifiedIDs returns recent article ids that have no classification.
func (r *SQLiteRepository) UnclassifiedIDs(ctx context.Context, limit int) ([]int64, error) {
	query, args, err := sq.Select("a.id").
		From("articles a").
		LeftJoin("classifications c ON c.article_id = a.id").
		Where("c.id IS NULL").
		OrderBy("a.processed_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select unclassified: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return ids, nil
}

// InsertClassification stores an LLM classification for an article.
func (r *SQLiteRepository) InsertClassification(ctx context.Context, c domain.Classification) (int64, error) {
	query, args, err := sq.Insert("classifications").
		Columns("article_id", "relevance_score", "category", "product_impact", "summary", "llm_response").
		Values(c.ArticleID, c.Relevance, c.Category, c.ProductImpact, c.Summary, c.RawResponse).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert classification: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	r.debug("inserted classification", "article_id", c.ArticleID)
	return id, nil
}

// UpsertAssessment inserts or replaces the threat assessment for an article.
// The UNIQUE(article_id) constraint plus OR REPLACE keeps at most one row per
// article; re-review overwrites the prior verdict, reviewer, and timestamp.
func (r *SQLiteRepository) UpsertAssessment(ctx context.Context, a domain.ThreatAssessment) error {
	reviewedAt := a.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = time.Now().UTC()
	}

	query, args, err := sq.Insert("threat_assessments").
		Options("OR REPLACE").
		Columns("article_id", "threat_level", "product_impact", "action_recommendation", "reviewed_by", "reviewed_at").
		Values(a.ArticleID, string(a.Level), a.Impact, a.Action, a.ReviewedBy, reviewedAt.UTC().Format(timeFormat)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert assessment: %w", err)
	}

	r.info("stored threat assessment", "article_id", a.ArticleID, "level", a.Level)
	return nil
}

// AssessmentByArticle returns the current assessment for an article, or nil.
func (r *SQLiteRepository) AssessmentByArticle(ctx context.Context, articleID int64) (*domain.ThreatAssessment, error) {
	query, args, err := sq.Select("article_id", "threat_level", "product_impact",
		"action_recommendation", "reviewed_by", "reviewed_at").
		From("threat_assessments").
		Where(sq.Eq{"article_id": articleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var (
		a          domain.ThreatAssessment
		level      string
		reviewedAt string
	)
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&a.ArticleID, &level, &a.Impact, &a.Action, &a.ReviewedBy, &reviewedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select assessment: %w", err)
	}

	a.Level = domain.ThreatLevel(level)
	if parsed, parseErr := time.Parse(timeFormat, reviewedAt); parseErr == nil {
		a.ReviewedAt = parsed
	}

	return &a, nil
}

// PendingReviews returns articles that are classified but not yet assessed,
// newest classification first.
func (r *SQLiteRepository) PendingReviews(ctx context.Context) ([]domain.PendingReview, error) {
	const query = `
		SELECT a.id, a.headline, a.url, a.source,
		       COALESCE(a.pub_date, ''), COALESCE(a.full_text, ''),
		       c.relevance_score, COALESCE(c.category, ''),
		       COALESCE(c.product_impact, ''), COALESCE(c.summary, '')
		FROM articles a
		INNER JOIN classifications c ON a.id = c.article_id
		LEFT JOIN threat_assessments t ON a.id = t.article_id
		WHERE t.id IS NULL
		ORDER BY c.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select pending reviews: %w", err)
	}
	defer rows.Close()

	var pending []domain.PendingReview
	for rows.Next() {
		var p domain.PendingReview
		if err := rows.Scan(&p.ArticleID, &p.Headline, &p.URL, &p.Source, &p.PubDate,
			&p.FullText, &p.Relevance, &p.Category, &p.ProductImpact, &p.Summary); err != nil {
			return nil, fmt.Errorf("scan pending review: %w", err)
		}
		pending = append(pending, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return pending, nil
}

// DigestCandidates selects reviewed articles for the next daily digest:
// assessed within the trailing two days, not already included in a
// daily_digest delivery of the trailing day, ordered by threat severity and
// most recent review.
func (r *SQLiteRepository) DigestCandidates(ctx context.Context, limit int) ([]domain.DigestArticle, error) {
	const query = `
		SELECT a.id, a.headline, a.url, a.source, COALESCE(a.pub_date, ''),
		       COALESCE(c.summary, ''), COALESCE(c.category, ''), COALESCE(c.product_impact, ''),
		       t.threat_level, t.action_recommendation
		FROM articles a
		INNER JOIN classifications c ON a.id = c.article_id
		INNER JOIN threat_assessments t ON a.id = t.article_id
		WHERE t.reviewed_at >= datetime('now', '-2 days')
		AND a.id NOT IN (
			SELECT json_each.value
			FROM deliveries d, json_each(d.articles_included)
			WHERE d.delivery_type = 'daily_digest'
			AND d.delivery_date >= datetime('now', '-1 day')
			AND json_valid(d.articles_included)
		)
		ORDER BY
			CASE t.threat_level
				WHEN 'HIGH' THEN 1
				WHEN 'MEDIUM' THEN 2
				WHEN 'LOW' THEN 3
				WHEN 'OPPORTUNITY' THEN 4
				ELSE 5
			END,
			t.reviewed_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select digest candidates: %w", err)
	}
	defer rows.Close()

	var articles []domain.DigestArticle
	for rows.Next() {
		a, err := scanDigestArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

// ReviewedArticle loads one fully reviewed article for alerting, or nil when
// the article has no classification or assessment yet.
func (r *SQLiteRepository) ReviewedArticle(ctx context.Context, articleID int64) (*domain.DigestArticle, error) {
	const query = `
		SELECT a.id, a.headline, a.url, a.source, COALESCE(a.pub_date, ''),
		       COALESCE(c.summary, ''), COALESCE(c.category, ''), COALESCE(t.product_impact, ''),
		       t.threat_level, t.action_recommendation
		FROM articles a
		INNER JOIN classifications c ON a.id = c.article_id
		INNER JOIN threat_assessments t ON a.id = t.article_id
		WHERE a.id = ?`

	row := r.db.QueryRowContext(ctx, query, articleID)
	a, err := scanDigestArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// RecentHighPriority returns ids of articles assessed HIGH at or after the
// given time, most recent first.
func (r *SQLiteRepository) RecentHighPriority(ctx context.Context, since time.Time) ([]int64, error) {
	query, args, err := sq.Select("article_id").
		From("threat_assessments").
		Where(sq.Eq{"threat_level": string(domain.ThreatHigh)}).
		Where(sq.GtOrEq{"reviewed_at": since.UTC().Format(timeFormat)}).
		OrderBy("reviewed_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select high priority: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return ids, nil
}

// WeeklyStats aggregates pipeline volume over a date window.
func (r *SQLiteRepository) WeeklyStats(ctx context.Context, start, end time.Time) (domain.WeeklyStats, error) {
	stats := domain.WeeklyStats{
		ImpactBreakdown: map[string]int{},
		LevelBreakdown:  map[string]int{},
	}

	from := start.UTC().Format(timeFormat)
	to := end.UTC().Format(timeFormat)

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE processed_at >= ? AND processed_at <= ?`,
		from, to).Scan(&stats.TotalScanned)
	if err != nil {
		return stats, fmt.Errorf("count scanned: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT a.id)
		 FROM articles a
		 INNER JOIN classifications c ON a.id = c.article_id
		 WHERE a.processed_at >= ? AND a.processed_at <= ?`,
		from, to).Scan(&stats.Classified)
	if err != nil {
		return stats, fmt.Errorf("count classified: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM threat_assessments
		 WHERE threat_level = 'HIGH' AND reviewed_at >= ? AND reviewed_at <= ?`,
		from, to).Scan(&stats.HighPriority)
	if err != nil {
		return stats, fmt.Errorf("count high priority: %w", err)
	}

	if err := r.breakdown(ctx, "product_impact", from, to, stats.ImpactBreakdown); err != nil {
		return stats, err
	}
	if err := r.breakdown(ctx, "threat_level", from, to, stats.LevelBreakdown); err != nil {
		return stats, err
	}

	return stats, nil
}

func (r *SQLiteRepository) breakdown(ctx context.Context, column, from, to string, into map[string]int) error {
	query, args, err := sq.Select(column, "COUNT(*)").
		From("threat_assessments").
		Where(sq.GtOrEq{"reviewed_at": from}).
		Where(sq.LtOrEq{"reviewed_at": to}).
		GroupBy(column).
		ToSql()
	if err != nil {
		return fmt.Errorf("build breakdown: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("select %s breakdown: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan breakdown: %w", err)
		}
		into[key] = count
	}

	return rows.Err()
}

// RecordDelivery stores one outbound send with the exact article id set.
func (r *SQLiteRepository) RecordDelivery(ctx context.Context, d domain.Delivery) error {
	ids := d.ArticleIDs
	if ids == nil {
		ids = []int64{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode article ids: %w", err)
	}

	date := d.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	query, args, err := sq.Insert("deliveries").
		Columns("delivery_type", "delivery_date", "channel", "message_id", "articles_included").
		Values(string(d.Type), date.UTC().Format(timeFormat), d.Channel, d.MessageID, string(encoded)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}

	r.info("recorded delivery", "type", d.Type, "channel", d.Channel, "articles", len(ids))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDigestArticle(row rowScanner) (domain.DigestArticle, error) {
	var (
		a     domain.DigestArticle
		level string
	)
	err := row.Scan(&a.ID, &a.Headline, &a.URL, &a.Source, &a.PubDate,
		&a.Summary, &a.Category, &a.Impact, &level, &a.Action)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan digest article: %w", err)
	}
	a.Level = domain.ThreatLevel(level)
	return a, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func (r *SQLiteRepository) info(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *SQLiteRepository) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *SQLiteRepository) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
