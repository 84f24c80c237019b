package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"IntelScanner/internal/domain"
	"IntelScanner/internal/ports"
)

// DefaultThreshold is the minimum similarity (0-100) treated as a duplicate.
// RSS sources often republish the same story with trivial title edits, so
// URL-only matching misses syndication.
const DefaultThreshold = 85

// Deduplicator matches candidate articles against the store by exact URL
// and fuzzy headline similarity. It never writes; call sites decide whether
// to skip or persist.
type Deduplicator struct {
	index     ports.DuplicateIndex
	threshold int
	metric    *metrics.Levenshtein
	logger    *slog.Logger
}

// New builds a deduplicator; threshold <= 0 falls back to DefaultThreshold.
func New(index ports.DuplicateIndex, threshold int, logger *slog.Logger) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false
	return &Deduplicator{
		index:     index,
		threshold: threshold,
		metric:    metric,
		logger:    logger,
	}
}

// Similarity scores two headlines on a 0-100 scale, case-insensitively.
func (d *Deduplicator) Similarity(a, b string) int {
	score := strutil.Similarity(strings.ToLower(a), strings.ToLower(b), d.metric)
	return int(math.Round(score * 100))
}

// IsDuplicate reports whether the candidate matches a stored article.
// Exact URL match wins first; otherwise every stored headline is scored and
// the first one at or above the threshold is returned.
func (d *Deduplicator) IsDuplicate(ctx context.Context, headline, url string) (bool, *domain.ArticleRef, error) {
	existing, err := d.index.ArticleRefByURL(ctx, url)
	if err != nil {
		return false, nil, fmt.Errorf("lookup url: %w", err)
	}
	if existing != nil {
		return true, existing, nil
	}

	refs, err := d.index.ArticleRefs(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("load headlines: %w", err)
	}

	for i := range refs {
		similarity := d.Similarity(headline, refs[i].Headline)
		if similarity >= d.threshold {
			d.debug("duplicate by similarity",
				"similarity", similarity,
				"candidate", headline,
				"existing", refs[i].Headline)
			return true, &refs[i], nil
		}
	}

	return false, nil, nil
}

func (d *Deduplicator) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
