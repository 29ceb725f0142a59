// Package event defines the common event shape produced by source adapters.
package event

import (
	"errors"
	"strings"
	"time"
)

// SeeLink is the display sentinel used when a provider has no reliably
// parseable start time. Dedup and delivery tracking do not depend on it.
const SeeLink = "See link for date"

// DisplayTime is the single date/time display format all adapters normalize to.
const DisplayTime = "2006-01-02 15:04"

// Event is a normalized, immutable listing from one provider.
//
// ID must be stable across repeated fetches of the same underlying event
// ("<source-prefix>_<provider-native-id>") so delivery tracking survives
// restarts. When is either a DisplayTime-formatted local timestamp or SeeLink.
type Event struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	When   string `json:"when"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

var (
	errEmptyID    = errors.New("event: empty id")
	errEmptyTitle = errors.New("event: empty title")
	errEmptyURL   = errors.New("event: empty url")
)

// Validate rejects events that would break dedup or rendering downstream.
func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errEmptyID
	}
	if strings.TrimSpace(e.Title) == "" {
		return errEmptyTitle
	}
	if strings.TrimSpace(e.URL) == "" {
		return errEmptyURL
	}
	return nil
}

// titleKeyLen bounds the normalized dedup key. Long titles frequently differ
// only in trailing boilerplate ("— Free Online Workshop"), so a fixed prefix
// collapses cross-source duplicates better than the full title.
const titleKeyLen = 60

// TitleKey returns the cross-source dedup key for a title: lowercased,
// trimmed, inner whitespace collapsed, truncated to titleKeyLen runes.
func TitleKey(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = strings.Join(strings.Fields(s), " ")
	rs := []rune(s)
	if len(rs) > titleKeyLen {
		rs = rs[:titleKeyLen]
	}
	return string(rs)
}

// Window is the fetch horizon handed to every source adapter.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow returns a window from now extending days ahead.
func NewWindow(now time.Time, days int) Window {
	if days <= 0 {
		days = 7
	}
	return Window{From: now, To: now.AddDate(0, 0, days)}
}
