package source

import (
	"strconv"
	"time"

	"eventbot/internal/event"
)

// fallbackEntry is one curated perennial listing. Offsets are days from "now"
// so the displayed dates always look current.
type fallbackEntry struct {
	title      string
	url        string
	daysAhead  int
	hourOfDay  int
	sourceName string
}

var fallbackEntries = []fallbackEntry{
	{"Google Cloud OnAir — Free Technical Webinars", "https://cloudonair.withgoogle.com", 1, 10, "Google Cloud"},
	{"Microsoft Reactor — Live Developer Sessions", "https://developer.microsoft.com/reactor", 1, 17, "Microsoft Reactor"},
	{"AWS Online Tech Talks", "https://aws.amazon.com/events/online-tech-talks", 2, 11, "AWS"},
	{"CNCF Live Webinars — Cloud Native Tech", "https://www.cncf.io/online-programs", 2, 16, "CNCF"},
	{"GitHub Virtual Events & Workshops", "https://github.com/events", 3, 10, "GitHub"},
	{"freeCodeCamp Live Coding Sessions", "https://www.freecodecamp.org", 3, 18, "freeCodeCamp"},
	{"Linux Foundation Free Webinars", "https://events.linuxfoundation.org/about/webinars", 4, 9, "Linux Foundation"},
	{"MongoDB Developer Events — Free Online", "https://www.mongodb.com/developer/events", 4, 15, "MongoDB"},
	{"HashiCorp Virtual Events & Labs", "https://www.hashicorp.com/events", 5, 12, "HashiCorp"},
	{"Women Who Code — Free Tech Events", "https://www.womenwhocode.com/events", 5, 17, "Women Who Code"},
	{"DigitalOcean Tech Talks & Workshops", "https://www.digitalocean.com/community/tech-talks", 6, 14, "DigitalOcean"},
	{"Redis University Live Sessions", "https://university.redis.io", 6, 19, "Redis"},
}

// Fallback is the always-available curated catalog used to top up shortfalls.
// No network access, no failure mode.
type Fallback struct{}

func NewFallback() *Fallback { return &Fallback{} }

// All returns the full catalog with ids fb_1..fb_n and display dates offset
// from now. IDs are positional and stable across calls.
func (f *Fallback) All(now time.Time) []event.Event {
	out := make([]event.Event, 0, len(fallbackEntries))
	for i, e := range fallbackEntries {
		day := now.AddDate(0, 0, e.daysAhead)
		when := time.Date(day.Year(), day.Month(), day.Day(), e.hourOfDay, 0, 0, 0, now.Location())
		out = append(out, event.Event{
			ID:     "fb_" + strconv.Itoa(i+1),
			Title:  e.title,
			When:   when.Format(event.DisplayTime),
			URL:    e.url,
			Source: e.sourceName,
		})
	}
	return out
}

// Len reports the catalog size.
func (f *Fallback) Len() int { return len(fallbackEntries) }
