package source

import (
	"strings"
	"time"

	"eventbot/internal/event"
)

// DefaultKeywords is the built-in topical vocabulary. A title must contain at
// least one entry (case-insensitive) to be retained.
var DefaultKeywords = []string{
	"tech", "software", "developer", "programming", "coding", "code",
	"ai", "machine learning", "data", "cloud", "devops", "web",
	"python", "javascript", "golang", " go ", "java", "rust",
	"kubernetes", "docker", "linux", "security", "api",
	"frontend", "backend", "full stack", "open source", "startup",
	"blockchain", "mobile", "android", "ios",
}

// Filter applies the shared relevance and script heuristics.
type Filter struct {
	keywords []string
}

// NewFilter builds a filter from the configured vocabulary.
// An empty list falls back to DefaultKeywords.
func NewFilter(keywords []string) *Filter {
	src := keywords
	if len(src) == 0 {
		src = DefaultKeywords
	}
	ks := make([]string, 0, len(src))
	for _, k := range src {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			ks = append(ks, k)
		}
	}
	return &Filter{keywords: ks}
}

// Keep reports whether a title passes both the topical and the script check.
func (f *Filter) Keep(title string) bool {
	return f.Topical(title) && MostlyLatin(title)
}

// Topical is a plain inclusion test against the vocabulary, not a classifier.
func (f *Filter) Topical(title string) bool {
	t := " " + strings.ToLower(strings.TrimSpace(title)) + " "
	for _, k := range f.keywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// latinCutoff approximates "English only": titles dominated by runes beyond
// this codepoint (CJK, Cyrillic beyond the basic range, etc.) are rejected.
const latinCutoff = 1000

// MostlyLatin reports whether >85% of a title's runes sit below latinCutoff.
func MostlyLatin(s string) bool {
	total, latin := 0, 0
	for _, r := range s {
		total++
		if r < latinCutoff {
			latin++
		}
	}
	if total == 0 {
		return false
	}
	return float64(latin)/float64(total) > 0.85
}

// whenLayouts are the provider timestamp shapes we accept, most specific first.
var whenLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NormalizeWhen maps a provider date/time string to the single display format,
// or the SeeLink sentinel when nothing parses.
func NormalizeWhen(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return event.SeeLink
	}
	for _, layout := range whenLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(event.DisplayTime)
		}
	}
	return event.SeeLink
}
