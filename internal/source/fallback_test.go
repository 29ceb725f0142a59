package source

import (
	"testing"
	"time"
)

func TestFallbackCatalog(t *testing.T) {
	t.Parallel()
	f := NewFallback()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	events := f.All(now)
	if len(events) != f.Len() {
		t.Fatalf("got %d events, want %d", len(events), f.Len())
	}
	if f.Len() < 10 {
		t.Fatalf("catalog must cover the minimum digest size, have %d", f.Len())
	}

	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			t.Fatalf("entry %d invalid: %v", i, err)
		}
		if ev.When == "" {
			t.Fatalf("entry %d has no display time", i)
		}
	}

	// IDs are positional and must be stable across calls.
	again := f.All(now.Add(48 * time.Hour))
	for i := range events {
		if events[i].ID != again[i].ID {
			t.Fatalf("id drifted at %d: %s vs %s", i, events[i].ID, again[i].ID)
		}
	}
}

func TestFallbackDatesTrackNow(t *testing.T) {
	t.Parallel()
	f := NewFallback()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	later := now.AddDate(0, 0, 30)

	if f.All(now)[0].When == f.All(later)[0].When {
		t.Fatal("display dates should move with the clock")
	}
}
