package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDecodeModelJSON(t *testing.T) {
	t.Parallel()

	type verdict struct {
		Category string `json:"category"`
	}

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"category": "Other"}`, "Other"},
		{"fenced", "```\n{\"category\": \"Other\"}\n```", "Other"},
		{"fenced with language", "```json\n{\"category\": \"Other\"}\n```", "Other"},
		{"surrounding whitespace", "  \n{\"category\": \"Other\"}\n  ", "Other"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var v verdict
			if err := decodeModelJSON(tc.raw, &v); err != nil {
				t.Fatalf("decodeModelJSON error: %v", err)
			}
			if v.Category != tc.want {
				t.Fatalf("category = %q, want %q", v.Category, tc.want)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	if got := truncateText("short", 100); got != "short" {
		t.Fatalf("short input changed: %q", got)
	}

	// "é" is two bytes, so an odd limit lands mid-rune and must back up.
	got := truncateText(strings.Repeat("é", 50), 7)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid UTF-8: %q", got)
	}
	if got != "ééé" {
		t.Fatalf("truncateText = %q, want %q", got, "ééé")
	}
}

func TestDecodeModelJSONRejectsProse(t *testing.T) {
	t.Parallel()

	var v struct{}
	if err := decodeModelJSON("The article is about advertising.", &v); err == nil {
		t.Fatal("expected decode error")
	}
}
