package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// historyTimeFormat is fixed-width so started_at sorts as text
const historyTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Run kinds recorded in the history
const (
	KindCoordinate = "coordinate"
	KindSimulate   = "simulate"
	KindRun        = "run"
)

// HistoryRecord is one finished invocation
type HistoryRecord struct {
	ID        string
	Kind      string
	StartedAt time.Time
	Duration  time.Duration
	Attempted int
	Succeeded int
	Failed    int
	Output    string
}

// History stores run records in SQLite
type History struct {
	db *sql.DB
}

// OpenHistory creates or opens the history database at path
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	h := &History{db: db}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		attempted INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		output TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Record inserts rec, assigning an id when it has none, and returns the id
func (h *History) Record(ctx context.Context, rec HistoryRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, started_at, duration_ms, attempted, succeeded, failed, output)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Kind,
		rec.StartedAt.UTC().Format(historyTimeFormat),
		rec.Duration.Milliseconds(),
		rec.Attempted,
		rec.Succeeded,
		rec.Failed,
		rec.Output,
	)
	if err != nil {
		return "", fmt.Errorf("recording %s run: %w", rec.Kind, err)
	}
	return rec.ID, nil
}

// Recent returns up to limit records, newest first
func (h *History) Recent(ctx context.Context, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, kind, started_at, duration_ms, attempted, succeeded, failed, output
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var (
			rec        HistoryRecord
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.Kind, &startedAt, &durationMS,
			&rec.Attempted, &rec.Succeeded, &rec.Failed, &rec.Output); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.StartedAt, err = time.Parse(historyTimeFormat, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}
