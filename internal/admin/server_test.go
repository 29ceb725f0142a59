package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventbot/internal/broadcast"
	"eventbot/internal/subscriber"
	logx "eventbot/pkg/logx"
)

type fakeBroadcaster struct {
	lastForce bool
	result    broadcast.Result
	stats     broadcast.Stats
}

func (f *fakeBroadcaster) RunCycle(ctx context.Context, force bool) broadcast.Result {
	f.lastForce = force
	return f.result
}

func (f *fakeBroadcaster) Stats(ctx context.Context) broadcast.Stats { return f.stats }

type fakeLister struct{ subs []subscriber.Subscriber }

func (f *fakeLister) List(ctx context.Context) ([]subscriber.Subscriber, error) {
	return f.subs, nil
}

func newTestServer(t *testing.T, bc Broadcaster, subs Lister) *Server {
	t.Helper()
	s, err := New(Config{Enabled: true, Password: "hunter2"}, bc, subs, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeBroadcaster{}, &fakeLister{})
	h := s.routes()

	tests := []struct {
		name   string
		method string
		path   string
		pass   string
		want   int
	}{
		{name: "stats no password", method: http.MethodGet, path: "/admin/stats", want: http.StatusUnauthorized},
		{name: "stats wrong password", method: http.MethodGet, path: "/admin/stats", pass: "nope", want: http.StatusUnauthorized},
		{name: "stats ok", method: http.MethodGet, path: "/admin/stats", pass: "hunter2", want: http.StatusOK},
		{name: "broadcast no password", method: http.MethodPost, path: "/admin/broadcast", want: http.StatusUnauthorized},
		{name: "health is public", method: http.MethodGet, path: "/health", want: http.StatusOK},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.pass != "" {
				req.Header.Set("X-Admin-Password", tt.pass)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()
	bc := &fakeBroadcaster{stats: broadcast.Stats{DeliveredEventCount: 7, LastFireMarker: "2025-06-01", SubscriberCount: 3}}
	s := newTestServer(t, bc, &fakeLister{})

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("X-Admin-Password", "hunter2")
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	var got broadcast.Stats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != bc.stats {
		t.Fatalf("stats = %+v, want %+v", got, bc.stats)
	}
}

func TestBroadcastEndpoint(t *testing.T) {
	t.Parallel()
	bc := &fakeBroadcaster{result: broadcast.Result{Sent: 2, Failed: 1, Events: 5}}
	s := newTestServer(t, bc, &fakeLister{})

	req := httptest.NewRequest(http.MethodPost, "/admin/broadcast?force=1", nil)
	req.Header.Set("X-Admin-Password", "hunter2")
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bc.lastForce {
		t.Fatal("force=1 not propagated")
	}
	var got broadcast.Result
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != bc.result {
		t.Fatalf("result = %+v, want %+v", got, bc.result)
	}
}

func TestSubscribersEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeBroadcaster{}, &fakeLister{subs: []subscriber.Subscriber{
		{ChatID: 1, Name: "Alice", Username: "alice"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/admin/subscribers", nil)
	req.Header.Set("X-Admin-Password", "hunter2")
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	var got struct {
		Count       int                     `json:"count"`
		Subscribers []subscriber.Subscriber `json:"subscribers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Count != 1 || len(got.Subscribers) != 1 || got.Subscribers[0].Name != "Alice" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestDashboardServed(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeBroadcaster{}, &fakeLister{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestMissingPasswordRejectedAtConstruction(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Enabled: true}, &fakeBroadcaster{}, &fakeLister{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty password")
	}
}
