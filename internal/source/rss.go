package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/mmcdole/gofeed"

	"eventbot/internal/event"
)

// RSSConfig configures the feed adapter. Feeds point at community event
// calendars (GDG chapters, CNCF webinars, conference aggregators) that
// publish upcoming sessions as items.
type RSSConfig struct {
	Feeds   []string
	Timeout time.Duration
}

type RSS struct {
	cfg    RSSConfig
	filter *Filter
	parser *gofeed.Parser
}

func NewRSS(cfg RSSConfig, filter *Filter) *RSS {
	p := gofeed.NewParser()
	p.Client = newHTTPClient(cfg.Timeout)
	return &RSS{cfg: cfg, filter: filter, parser: p}
}

func (s *RSS) Name() string { return "rss" }

// Fetch parses every configured feed and keeps items that look like upcoming
// events inside the window. Items without a parseable date are kept with the
// SeeLink sentinel; feeds that fail to parse are skipped unless all fail.
func (s *RSS) Fetch(ctx context.Context, w event.Window) ([]event.Event, error) {
	var out []event.Event
	var lastErr error
	okFeeds := 0
	for _, feedURL := range s.cfg.Feeds {
		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			lastErr = fmt.Errorf("rss %s: %w", feedURL, err)
			continue
		}
		okFeeds++

		label := feed.Title
		if label == "" {
			label = "RSS"
		}
		for _, item := range feed.Items {
			guid := item.GUID
			if guid == "" {
				guid = item.Link
			}
			if guid == "" || item.Link == "" || !s.filter.Keep(item.Title) {
				continue
			}

			when := event.SeeLink
			if item.PublishedParsed != nil {
				t := *item.PublishedParsed
				// Feed dates are publication dates; only trust ones inside
				// the window as event dates.
				if t.Before(w.From) || t.After(w.To) {
					continue
				}
				when = t.Format(event.DisplayTime)
			}

			ev := event.Event{
				ID:     "rss_" + shortHash(guid),
				Title:  item.Title,
				When:   when,
				URL:    item.Link,
				Source: label,
			}
			if ev.Validate() != nil {
				continue
			}
			out = append(out, ev)
		}
	}
	if okFeeds == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func shortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
