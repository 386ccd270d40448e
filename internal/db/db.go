// Package db journals emitted gesture events to sqlite so operators can
// review what the detectors called during a set. The journal is an
// observer of the event stream, never a dependency of detection.
package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/crowd-organ/gesture.host/internal/gesture"
)

// DB wraps the sqlite connection.
type DB struct {
	*sql.DB
}

// NewDB opens (and creates if needed) the journal database at path.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS gesture_events (
			event_id     TEXT PRIMARY KEY,
			kind         TEXT NOT NULL,
			subject      INTEGER NOT NULL,
			gesture_type TEXT NOT NULL,
			strength     DOUBLE NOT NULL,
			extra        DOUBLE,
			cell         INTEGER,
			unix_millis  BIGINT NOT NULL,
			created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_gesture_events_millis
			ON gesture_events(unix_millis);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// EventRow is one journaled gesture event.
type EventRow struct {
	EventID    string  `json:"event_id"`
	Kind       string  `json:"kind"`
	Subject    int     `json:"subject"`
	Type       string  `json:"type"`
	Strength   float64 `json:"strength"`
	Extra      float64 `json:"extra"`
	Cell       int     `json:"cell"`
	UnixMillis int64   `json:"unix_millis"`
}

// RecordEvent inserts one emitted event.
func (db *DB) RecordEvent(event gesture.Event) error {
	_, err := db.Exec(`
		INSERT INTO gesture_events
			(event_id, kind, subject, gesture_type, strength, extra, cell, unix_millis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, string(event.Kind), event.Subject, string(event.Type),
		event.Strength, event.Extra, event.Cell, event.UnixMillis,
	)
	if err != nil {
		return fmt.Errorf("failed to record gesture event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (db *DB) RecentEvents(limit int) ([]EventRow, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT event_id, kind, subject, gesture_type, strength, extra, cell, unix_millis
		FROM gesture_events
		ORDER BY unix_millis DESC, created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.EventID, &e.Kind, &e.Subject, &e.Type,
			&e.Strength, &e.Extra, &e.Cell, &e.UnixMillis); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountsByType returns how many events of each gesture type were journaled
// at or after sinceUnixMillis.
func (db *DB) CountsByType(sinceUnixMillis int64) (map[string]int, error) {
	rows, err := db.Query(`
		SELECT gesture_type, COUNT(*)
		FROM gesture_events
		WHERE unix_millis >= ?
		GROUP BY gesture_type`, sinceUnixMillis)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var gestureType string
		var n int
		if err := rows.Scan(&gestureType, &n); err != nil {
			return nil, err
		}
		counts[gestureType] = n
	}
	return counts, rows.Err()
}

// Emit journals one event, implementing the engine's EventSink. Journal
// failures are logged, not propagated; the show goes on.
func (db *DB) Emit(event gesture.Event) {
	if err := db.RecordEvent(event); err != nil {
		log.Printf("event journal: %v", err)
	}
}
