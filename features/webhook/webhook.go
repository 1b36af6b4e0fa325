// Package webhook records inbound source-update notifications in an
// append-only SQLite log. Receiving an event signals that cached responses
// for the source may be stale.
package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS webhook_events (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	event_type  TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL DEFAULT '{}',
	received_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS webhook_events_received_at ON webhook_events (received_at DESC);
`

// Event is one recorded notification.
type Event struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	EventType  string          `json:"event_type,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Log is the SQLite-backed event log. Safe for concurrent use.
type Log struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the event log at path.
func Open(path string) (*Log, error) {
	dsn := "file:" + path + "?cache=shared&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("webhook: open %s: %w", path, err)
	}
	return newLog(db)
}

// OpenDB wraps an existing database handle, creating the schema if needed.
func OpenDB(db *sql.DB) (*Log, error) {
	return newLog(db)
}

func newLog(db *sql.DB) (*Log, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("webhook: init schema: %w", err)
	}
	return &Log{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error { return l.db.Close() }

// WithClock overrides the log clock. Test hook.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// Record appends one event and returns it with id and timestamp assigned.
func (l *Log) Record(ctx context.Context, source, eventType string, payload json.RawMessage) (Event, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	event := Event{
		ID:         uuid.NewString(),
		Source:     source,
		EventType:  eventType,
		Payload:    payload,
		ReceivedAt: l.now().UTC(),
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO webhook_events (id, source, event_type, payload, received_at) VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.Source, event.EventType, string(event.Payload), event.ReceivedAt)
	if err != nil {
		return Event{}, fmt.Errorf("webhook: record event: %w", err)
	}
	return event, nil
}

// List returns up to limit events, newest first. A non-positive limit
// defaults to 50.
func (l *Log) List(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, source, event_type, payload, received_at
		 FROM webhook_events ORDER BY received_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("webhook: list events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			e       Event
			payload string
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.EventType, &payload, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("webhook: scan event: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}
