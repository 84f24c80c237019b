package usecase

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// decodeModelJSON parses a JSON object out of an LLM completion, stripping a
// markdown code fence (with optional "json" language tag) if present.
func decodeModelJSON(raw string, v any) error {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) >= 2 {
			text = strings.Join(lines[1:len(lines)-1], "\n")
		}
		text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "json"))
	}

	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}

// truncateText cuts s to at most max bytes without splitting a rune.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
