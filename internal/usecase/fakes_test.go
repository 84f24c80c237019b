package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
)

// memStore is an in-memory stand-in for the SQLite repository covering all
// store ports used by the use cases.
type memStore struct {
	mu sync.Mutex

	articles        []domain.Article
	classifications []domain.Classification
	assessments     map[int64]domain.ThreatAssessment
	deliveries      []domain.Delivery

	digest   []domain.DigestArticle
	reviewed map[int64]domain.DigestArticle
	high     []int64
	stats    domain.WeeklyStats

	insertArticleErr error
	upsertErr        error
	pendingErr       error
}

var _ ports.ArticleStore = (*memStore)(nil)
var _ ports.ClassificationStore = (*memStore)(nil)
var _ ports.AssessmentStore = (*memStore)(nil)
var _ ports.DeliveryStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		assessments: map[int64]domain.ThreatAssessment{},
		reviewed:    map[int64]domain.DigestArticle{},
	}
}

func (m *memStore) ArticleRefByURL(_ context.Context, url string) (*domain.ArticleRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.URL == url {
			return &domain.ArticleRef{ID: a.ID, Headline: a.Headline, URL: a.URL}, nil
		}
	}
	return nil, nil
}

func (m *memStore) ArticleRefs(_ context.Context) ([]domain.ArticleRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := make([]domain.ArticleRef, 0, len(m.articles))
	for _, a := range m.articles {
		refs = append(refs, domain.ArticleRef{ID: a.ID, Headline: a.Headline, URL: a.URL})
	}
	return refs, nil
}

func (m *memStore) InsertArticle(_ context.Context, article domain.RawArticle) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertArticleErr != nil {
		return 0, m.insertArticleErr
	}
	for _, a := range m.articles {
		if a.URL == article.URL {
			return a.ID, nil
		}
	}
	id := int64(len(m.articles) + 1)
	m.articles = append(m.articles, domain.Article{
		ID:       id,
		Headline: article.Headline,
		URL:      article.URL,
		Source:   article.Source,
		PubDate:  article.PubDate,
		FullText: article.FullText,
	})
	return id, nil
}

func (m *memStore) ArticlesByIDs(_ context.Context, ids []int64) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Article
	for _, id := range ids {
		for _, a := range m.articles {
			if a.ID == id {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (m *memStore) UnclassifiedIDs(_ context.Context, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	classified := map[int64]bool{}
	for _, c := range m.classifications {
		classified[c.ArticleID] = true
	}
	var ids []int64
	for _, a := range m.articles {
		if !classified[a.ID] {
			ids = append(ids, a.ID)
		}
		if len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

func (m *memStore) InsertClassification(_ context.Context, c domain.Classification) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = int64(len(m.classifications) + 1)
	m.classifications = append(m.classifications, c)
	return c.ID, nil
}

func (m *memStore) UpsertAssessment(_ context.Context, a domain.ThreatAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if a.ReviewedAt.IsZero() {
		a.ReviewedAt = time.Now().UTC()
	}
	m.assessments[a.ArticleID] = a
	return nil
}

func (m *memStore) AssessmentByArticle(_ context.Context, articleID int64) (*domain.ThreatAssessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[articleID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memStore) PendingReviews(_ context.Context) ([]domain.PendingReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingErr != nil {
		return nil, m.pendingErr
	}
	var pending []domain.PendingReview
	for _, c := range m.classifications {
		if _, assessed := m.assessments[c.ArticleID]; assessed {
			continue
		}
		p := domain.PendingReview{
			ArticleID:     c.ArticleID,
			Relevance:     c.Relevance,
			Category:      c.Category,
			ProductImpact: c.ProductImpact,
			Summary:       c.Summary,
		}
		for _, a := range m.articles {
			if a.ID == c.ArticleID {
				p.Headline = a.Headline
				p.URL = a.URL
				p.Source = a.Source
				p.PubDate = a.PubDate
				p.FullText = a.FullText
			}
		}
		pending = append(pending, p)
	}
	return pending, nil
}

func (m *memStore) DigestCandidates(_ context.Context, limit int) ([]domain.DigestArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.digest) > limit {
		return m.digest[:limit], nil
	}
	return m.digest, nil
}

func (m *memStore) ReviewedArticle(_ context.Context, articleID int64) (*domain.DigestArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.reviewed[articleID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memStore) RecentHighPriority(_ context.Context, _ time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.high, nil
}

func (m *memStore) WeeklyStats(_ context.Context, _, _ time.Time) (domain.WeeklyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats, nil
}

func (m *memStore) RecordDelivery(_ context.Context, d domain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, d)
	return nil
}

// fakeChat replays scripted responses; an empty errs slot means success.
type fakeChat struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

var _ ports.ChatClient = (*fakeChat)(nil)

func (f *fakeChat) Complete(_ context.Context, prompt string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", fmt.Errorf("unexpected call %d", i)
}

// fakeMessenger records outbound sends.
type fakeMessenger struct {
	mu       sync.Mutex
	digests  int
	summarys int
	alerts   []int64
	channels []string
	sendErr  error
}

var _ ports.Messenger = (*fakeMessenger)(nil)

func (f *fakeMessenger) SendDigest(_ context.Context, channel string, _ time.Time, _ []domain.DigestArticle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.digests++
	f.channels = append(f.channels, channel)
	return "ts-digest", nil
}

func (f *fakeMessenger) SendWeeklySummary(_ context.Context, channel string, _ domain.WeeklyStats, _, _ time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.summarys++
	f.channels = append(f.channels, channel)
	return "ts-summary", nil
}

func (f *fakeMessenger) SendAlert(_ context.Context, channel string, article domain.DigestArticle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.alerts = append(f.alerts, article.ID)
	f.channels = append(f.channels, channel)
	return "ts-alert", nil
}

// fakeFeedReader serves fixed entries per source name.
type fakeFeedReader struct {
	entries map[string][]domain.RawArticle
	err     error
}

var _ ports.FeedReader = (*fakeFeedReader)(nil)

func (f *fakeFeedReader) Read(_ context.Context, source, _ string) ([]domain.RawArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[source], nil
}
