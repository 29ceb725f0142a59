package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"eventbot/internal/event"
)

func ev(id string) event.Event {
	return event.Event{ID: id, Title: "t " + id, URL: "https://example.com/" + id}
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	t.Parallel()
	l, err := Open(filepath.Join(t.TempDir(), "sent.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d", l.Len())
	}
}

func TestOpenCorruptFileFails(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sent.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("corrupt ledger must be an error, not a silent reset")
	}
}

func TestMarkSentRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sent.json")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.MarkSent([]event.Event{ev("a"), ev("b")}); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	// A fresh open sees the persisted set.
	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	unseen := l2.FilterUnseen([]event.Event{ev("a"), ev("b"), ev("c")})
	if len(unseen) != 1 || unseen[0].ID != "c" {
		t.Fatalf("FilterUnseen = %+v, want only c", unseen)
	}
}

func TestMarkSentGrowsMonotonically(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sent.json")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := l.MarkSent([]event.Event{ev("a")}); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := l.MarkSent([]event.Event{ev("a"), ev("b")}); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}

	var ids []string
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, &ids); err != nil {
		t.Fatalf("persisted file not a JSON id array: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("persisted ids = %v, want sorted [a b]", ids)
	}
}

func TestMarkSentSkipsEmptyIDs(t *testing.T) {
	t.Parallel()
	l, err := Open(filepath.Join(t.TempDir(), "sent.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.MarkSent([]event.Event{{ID: ""}, ev("x")}); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}
}

func TestNoTempFileLeftBehind(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l, err := Open(filepath.Join(dir, "sent.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.MarkSent([]event.Event{ev("a")}); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "sent.json" {
		t.Fatalf("unexpected dir contents: %v", entries)
	}
}
