package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/samsaffron/blockstream/internal/decode"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Schema for the events database. Events are stored as their JSON record
// with the ordering columns pulled out.
const schema = `
CREATE TABLE IF NOT EXISTS streams (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    stream_id TEXT NOT NULL REFERENCES streams(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    block_id INTEGER NOT NULL,
    type TEXT NOT NULL,
    payload TEXT NOT NULL,
    PRIMARY KEY (stream_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_streams_updated_at ON streams(updated_at DESC);
`

// schemaVersion is stored in PRAGMA user_version. Increment when the schema
// changes and teach initSchema to upgrade older databases.
const schemaVersion = 1

// NewSQLiteStore opens or creates the events database.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		var err error
		if dbPath, err = GetDBPath(); err != nil {
			return nil, fmt.Errorf("get db path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	store := &SQLiteStore{db: db, cfg: cfg}
	if err := store.cleanup(); err != nil {
		slog.Warn("event store cleanup failed", "error", err)
	}
	return store, nil
}

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// cleanup enforces MaxStreams.
func (s *SQLiteStore) cleanup() error {
	if s.cfg.MaxStreams <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(context.Background(), `
		DELETE FROM streams WHERE id IN (
			SELECT id FROM streams
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)`, s.cfg.MaxStreams)
	if err != nil {
		return fmt.Errorf("enforce max streams: %w", err)
	}
	return nil
}

// Write appends events in a single transaction. Events may belong to
// several streams; each (stream, seq) pair can be written once.
func (s *SQLiteStore) Write(ctx context.Context, events []decode.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	seen := make(map[string]bool)
	for _, e := range events {
		if !seen[e.StreamID] {
			seen[e.StreamID] = true
			_, err := tx.ExecContext(ctx, `
				INSERT INTO streams (id, created_at, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
				e.StreamID, now, now)
			if err != nil {
				return fmt.Errorf("upsert stream %s: %w", e.StreamID, err)
			}
		}

		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", e.Seq, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (stream_id, seq, block_id, type, payload)
			VALUES (?, ?, ?, ?, ?)`,
			e.StreamID, e.Seq, e.BlockID, string(e.Type), string(payload))
		if err != nil {
			return fmt.Errorf("insert event %s/%d: %w", e.StreamID, e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Events returns a stream's events in seq order. An unknown stream yields
// no events and no error.
func (s *SQLiteStore) Events(ctx context.Context, streamID string) ([]decode.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM events WHERE stream_id = ? ORDER BY seq ASC`, streamID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []decode.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e decode.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Streams lists persisted streams, most recently updated first.
func (s *SQLiteStore) Streams(ctx context.Context, limit int) ([]StreamSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM events e WHERE e.stream_id = s.id),
		       (SELECT COUNT(*) FROM events e WHERE e.stream_id = s.id AND e.type = ?)
		FROM streams s
		ORDER BY s.updated_at DESC
		LIMIT ?`, string(decode.EventBlockEnd), limit)
	if err != nil {
		return nil, fmt.Errorf("query streams: %w", err)
	}
	defer rows.Close()

	var out []StreamSummary
	for rows.Next() {
		var sum StreamSummary
		if err := rows.Scan(&sum.ID, &sum.CreatedAt, &sum.UpdatedAt, &sum.Events, &sum.Blocks); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streams: %w", err)
	}
	return out, nil
}

// Delete removes a stream and its events.
func (s *SQLiteStore) Delete(ctx context.Context, streamID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM streams WHERE id = ?`, streamID); err != nil {
		return fmt.Errorf("delete stream: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
