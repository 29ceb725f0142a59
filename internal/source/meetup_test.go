package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventbot/internal/event"
)

func meetupResponse(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(body)); err != nil {
		t.Errorf("write response: %v", err)
	}
}

func TestMeetupFetch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		meetupResponse(t, w, `{
			"data": {"keywordSearch": {"edges": [
				{"node": {"result": {"id": "e1", "title": "Golang Nairobi Meetup", "dateTime": "2025-06-03T18:00:00Z", "eventUrl": "https://meetup.example/e1"}}},
				{"node": {"result": {"id": "e2", "title": "Book Club", "dateTime": "2025-06-03T18:00:00Z", "eventUrl": "https://meetup.example/e2"}}},
				{"node": {}}
			]}}
		}`)
	}))
	defer srv.Close()

	s := NewMeetup(MeetupConfig{BaseURL: srv.URL, Queries: []string{"golang"}}, NewFilter(nil))
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	events, err := s.Fetch(context.Background(), event.NewWindow(now, 7))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}
	if events[0].ID != "mu_e1" || events[0].Source != "Meetup" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestMeetupFetchDedupsAcrossQueries(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meetupResponse(t, w, `{
			"data": {"keywordSearch": {"edges": [
				{"node": {"result": {"id": "same", "title": "Cloud Native Meetup", "dateTime": "2025-06-03T18:00:00Z", "eventUrl": "https://meetup.example/same"}}}
			]}}
		}`)
	}))
	defer srv.Close()

	s := NewMeetup(MeetupConfig{BaseURL: srv.URL, Queries: []string{"cloud", "kubernetes"}}, NewFilter(nil))
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	events, err := s.Fetch(context.Background(), event.NewWindow(now, 7))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("same id from two queries must collapse, got %d", len(events))
	}
}

func TestMeetupFetchPartialFailure(t *testing.T) {
	t.Parallel()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream sad", http.StatusBadGateway)
			return
		}
		meetupResponse(t, w, `{
			"data": {"keywordSearch": {"edges": [
				{"node": {"result": {"id": "ok", "title": "DevOps Night", "dateTime": "2025-06-03T18:00:00Z", "eventUrl": "https://meetup.example/ok"}}}
			]}}
		}`)
	}))
	defer srv.Close()

	s := NewMeetup(MeetupConfig{BaseURL: srv.URL, Queries: []string{"a", "b"}}, NewFilter(nil))
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	// One failing term does not fail the fetch as long as another succeeds.
	events, err := s.Fetch(context.Background(), event.NewWindow(now, 7))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
}

func TestMeetupFetchAllFail(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewMeetup(MeetupConfig{BaseURL: srv.URL, Queries: []string{"a"}}, NewFilter(nil))
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if _, err := s.Fetch(context.Background(), event.NewWindow(now, 7)); err == nil {
		t.Fatal("expected error when every term fails")
	}
}
