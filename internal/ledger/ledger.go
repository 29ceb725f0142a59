// Package ledger persists the set of event ids already delivered to the full
// subscriber base.
package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"eventbot/internal/event"
)

// Ledger is the delivered-id set. The persisted file is a JSON array of ids;
// it only grows under normal operation (force cycles bypass it entirely).
//
// Writes are serialized: the recurring scheduler and an operator-triggered
// broadcast can both reach MarkSent, and interleaved read-modify-write of the
// file must not happen.
type Ledger struct {
	path string

	mu  sync.Mutex
	ids map[string]bool
}

// Open loads the persisted set. A missing file starts an empty ledger; a
// corrupt file is an error (silently starting empty would re-send history).
func Open(path string) (*Ledger, error) {
	l := &Ledger{path: path, ids: map[string]bool{}}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if id != "" {
			l.ids[id] = true
		}
	}
	return l, nil
}

// FilterUnseen returns the subsequence of events whose id has not been
// delivered yet. It reads a snapshot; only MarkSent serializes with the file.
func (l *Ledger) FilterUnseen(events []event.Event) []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]event.Event, 0, len(events))
	for _, ev := range events {
		if !l.ids[ev.ID] {
			out = append(out, ev)
		}
	}
	return out
}

// MarkSent adds every id from the list to the set and persists it durably
// before returning. The write is atomic (tmp + rename), never a partially
// written set.
func (l *Ledger) MarkSent(events []event.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range events {
		if ev.ID != "" {
			l.ids[ev.ID] = true
		}
	}
	return l.saveLocked()
}

// Len reports how many ids have been delivered.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

func (l *Ledger) saveLocked() error {
	ids := make([]string, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids) // stable file content for diffing and tests

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(ids); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return err
	}
	success = true
	return nil
}
