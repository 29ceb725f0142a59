package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventbot/internal/event"
)

func rssFeed(items string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Dev Calendar</title>` + items + `</channel></rss>`
}

func TestRSSFetch(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	inWindow := now.AddDate(0, 0, 2).Format(time.RFC1123Z)
	outWindow := now.AddDate(0, 0, -30).Format(time.RFC1123Z)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFeed(`
			<item><guid>g1</guid><title>Free Kubernetes Webinar</title><link>https://feed.example/1</link><pubDate>`+inWindow+`</pubDate></item>
			<item><guid>g2</guid><title>Old Python Talk</title><link>https://feed.example/2</link><pubDate>`+outWindow+`</pubDate></item>
			<item><guid>g3</guid><title>Cooking for Beginners</title><link>https://feed.example/3</link><pubDate>`+inWindow+`</pubDate></item>
			<item><guid>g4</guid><title>Rust Study Group</title><link>https://feed.example/4</link></item>
		`))
	}))
	defer srv.Close()

	s := NewRSS(RSSConfig{Feeds: []string{srv.URL}}, NewFilter(nil))
	events, err := s.Fetch(context.Background(), event.NewWindow(now, 7))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// Kept: the in-window webinar and the dateless rust item (SeeLink).
	// Dropped: out-of-window and off-topic.
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Source != "Dev Calendar" {
		t.Fatalf("Source = %q, want feed title", events[0].Source)
	}
	if events[1].When != event.SeeLink {
		t.Fatalf("dateless item When = %q, want sentinel", events[1].When)
	}
}

func TestRSSFetchAllFeedsFail(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	s := NewRSS(RSSConfig{Feeds: []string{srv.URL}}, NewFilter(nil))
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if _, err := s.Fetch(context.Background(), event.NewWindow(now, 7)); err == nil {
		t.Fatal("expected error when every feed fails")
	}
}

func TestRSSFetchPartialFeedFailure(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	inWindow := now.AddDate(0, 0, 1).Format(time.RFC1123Z)

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(`<item><guid>g</guid><title>DevOps Meetup</title><link>https://feed.example/g</link><pubDate>`+inWindow+`</pubDate></item>`))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	s := NewRSS(RSSConfig{Feeds: []string{bad.URL, good.URL}}, NewFilter(nil))
	events, err := s.Fetch(context.Background(), event.NewWindow(now, 7))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 from the healthy feed", len(events))
	}
}

func TestShortHashStable(t *testing.T) {
	t.Parallel()
	if shortHash("abc") != shortHash("abc") {
		t.Fatal("hash must be deterministic")
	}
	if shortHash("abc") == shortHash("abd") {
		t.Fatal("different inputs should not collide trivially")
	}
	if len(shortHash("abc")) != 16 {
		t.Fatalf("hash length = %d, want 16", len(shortHash("abc")))
	}
}
