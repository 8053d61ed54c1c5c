// Package sqlite persists run history in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/bnema/siteback/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	status      TEXT NOT NULL,
	result_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_history_started ON run_history(started_at);
`

// HistoryStore keeps the most recent run results, evicting the oldest
// beyond its cap.
type HistoryStore struct {
	db  *sql.DB
	cap int
}

// Option configures the HistoryStore.
type Option func(*HistoryStore)

// WithCap overrides the number of retained entries.
func WithCap(n int) Option {
	return func(s *HistoryStore) {
		if n > 0 {
			s.cap = n
		}
	}
}

// Open opens or creates the history database at path.
func Open(path string, opts ...Option) (*HistoryStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("%w: create history directory: %v", domain.ErrIO, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// A single connection keeps :memory: databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	s := &HistoryStore{db: db, cap: domain.MaxHistoryEntries}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Append stores result then trims the table to the cap.
func (s *HistoryStore) Append(ctx context.Context, result domain.RunResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode run result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO run_history (run_id, started_at, status, result_json) VALUES (?, ?, ?, ?)`,
		result.RunID, result.StartedAt.UTC().Format("2006-01-02T15:04:05.000000000Z"), string(result.Status), string(data),
	); err != nil {
		return fmt.Errorf("insert run result: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM run_history WHERE id NOT IN (SELECT id FROM run_history ORDER BY id DESC LIMIT ?)`,
		s.cap,
	); err != nil {
		return fmt.Errorf("trim run history: %w", err)
	}

	return tx.Commit()
}

// List returns up to limit results, most recent first. A non-positive
// limit returns everything retained.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]domain.RunResult, error) {
	if limit <= 0 || limit > s.cap {
		limit = s.cap
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT result_json FROM run_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	results := make([]domain.RunResult, 0, limit)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan run history: %w", err)
		}
		var r domain.RunResult
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode run result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
