package dedup

import (
	"context"
	"testing"

	"IntelScanner/internal/domain"
)

type fakeIndex struct {
	refs []domain.ArticleRef
}

func (f *fakeIndex) ArticleRefByURL(_ context.Context, url string) (*domain.ArticleRef, error) {
	for i := range f.refs {
		if f.refs[i].URL == url {
			return &f.refs[i], nil
		}
	}
	return nil, nil
}

func (f *fakeIndex) ArticleRefs(_ context.Context) ([]domain.ArticleRef, error) {
	return f.refs, nil
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	d := New(&fakeIndex{}, 0, nil)

	cases := []struct {
		name string
		a, b string
		want func(int) bool
	}{
		{"identical", "Google launches AI tools", "Google launches AI tools", func(s int) bool { return s == 100 }},
		{"case insensitive", "GOOGLE LAUNCHES AI TOOLS", "google launches ai tools", func(s int) bool { return s == 100 }},
		{"near duplicate", "Google launches AI-powered campaign tools", "Google launches AI powered campaign tools", func(s int) bool { return s >= DefaultThreshold }},
		{"unrelated", "Google launches AI tools", "Publisher payment rails go live", func(s int) bool { return s < DefaultThreshold }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := d.Similarity(tc.a, tc.b)
			if !tc.want(got) {
				t.Fatalf("Similarity(%q, %q) = %d", tc.a, tc.b, got)
			}
			if sym := d.Similarity(tc.b, tc.a); sym != got {
				t.Fatalf("similarity not symmetric: %d vs %d", got, sym)
			}
		})
	}
}

func TestIsDuplicateByURL(t *testing.T) {
	t.Parallel()

	index := &fakeIndex{refs: []domain.ArticleRef{
		{ID: 1, Headline: "Stored story", URL: "https://example.com/a"},
	}}
	d := New(index, DefaultThreshold, nil)

	dup, ref, err := d.IsDuplicate(context.Background(), "Totally different headline", "https://example.com/a")
	if err != nil {
		t.Fatalf("IsDuplicate error: %v", err)
	}
	if !dup {
		t.Fatal("expected URL duplicate")
	}
	if ref == nil || ref.ID != 1 {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestIsDuplicateByHeadline(t *testing.T) {
	t.Parallel()

	index := &fakeIndex{refs: []domain.ArticleRef{
		{ID: 1, Headline: "Google launches AI-powered campaign tools", URL: "https://example.com/a"},
	}}
	d := New(index, DefaultThreshold, nil)

	dup, ref, err := d.IsDuplicate(context.Background(),
		"Google launches AI powered campaign tools", "https://example.com/b")
	if err != nil {
		t.Fatalf("IsDuplicate error: %v", err)
	}
	if !dup {
		t.Fatal("expected headline duplicate")
	}
	if ref == nil || ref.ID != 1 {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestIsDuplicateEmptyStore(t *testing.T) {
	t.Parallel()

	d := New(&fakeIndex{}, DefaultThreshold, nil)

	dup, ref, err := d.IsDuplicate(context.Background(), "Any headline", "https://example.com/a")
	if err != nil {
		t.Fatalf("IsDuplicate error: %v", err)
	}
	if dup || ref != nil {
		t.Fatal("empty store must never report duplicates")
	}
}

func TestThresholdControlsMatching(t *testing.T) {
	t.Parallel()

	index := &fakeIndex{refs: []domain.ArticleRef{
		{ID: 1, Headline: "Google launches campaign tools", URL: "https://example.com/a"},
	}}
	candidate := "Google launches new campaign tool"

	strict := New(index, 99, nil)
	dup, _, err := strict.IsDuplicate(context.Background(), candidate, "https://example.com/b")
	if err != nil {
		t.Fatalf("IsDuplicate error: %v", err)
	}
	if dup {
		t.Fatal("strict threshold must not match a loose variant")
	}

	loose := New(index, 80, nil)
	dup, _, err = loose.IsDuplicate(context.Background(), candidate, "https://example.com/b")
	if err != nil {
		t.Fatalf("IsDuplicate error: %v", err)
	}
	if !dup {
		t.Fatal("loose threshold must match a close variant")
	}
}
