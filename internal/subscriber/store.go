// Package subscriber persists the subscriber directory.
package subscriber

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "eventbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Subscriber is one chat that receives the digest.
type Subscriber struct {
	ChatID   int64     `json:"chat_id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined"`
}

// Config configures the store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the SQLite-backed directory. The broadcast core only reads it;
// mutation happens from the chat command handlers.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("subscribers.path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add registers a chat; re-subscribing is a no-op. Returns whether the row
// was newly created.
func (s *Store) Add(ctx context.Context, chatID int64, name, username string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers(chat_id, name, username, joined_at)
		 VALUES(?,?,?,?)
		 ON CONFLICT(chat_id) DO NOTHING`,
		chatID, name, username, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remove unsubscribes a chat. Returns whether a row existed.
func (s *Store) Remove(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscribers WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns all subscribers ordered by join time.
func (s *Store) List(ctx context.Context) ([]Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, name, username, joined_at FROM subscribers ORDER BY joined_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscriber
	for rows.Next() {
		var sub Subscriber
		var joined string
		if err := rows.Scan(&sub.ChatID, &sub.Name, &sub.Username, &joined); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, joined); err == nil {
			sub.JoinedAt = t
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ChatIDs returns the recipient ids only (the view the broadcast core uses).
func (s *Store) ChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM subscribers ORDER BY joined_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Count reports the directory size.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n)
	return n, err
}
