// Package journal records watchdog lifecycle events in a SQLite database so
// that crash and restart history survives the watchdog process itself.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Journal wraps the SQLite connection holding the event history.
type Journal struct {
	conn *sql.DB
	path string
}

// Event is a single recorded watchdog lifecycle event.
type Event struct {
	ID        int64
	EventType string
	Details   string
	Timestamp time.Time
}

// Open opens or creates the journal database at the given path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// WAL mode so the status command can read while the watchdog writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	j := &Journal{conn: conn, path: path}
	if err := j.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	-- Watchdog lifecycle events: start, spawn, crash, restart, give-up, shutdown
	CREATE TABLE IF NOT EXISTS watchdog_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_watchdog_events_timestamp ON watchdog_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_watchdog_events_type ON watchdog_events(event_type);
	`

	_, err := j.conn.Exec(schema)
	return err
}

// LogEvent records a lifecycle event.
func (j *Journal) LogEvent(eventType, details string) error {
	_, err := j.conn.Exec(
		`INSERT INTO watchdog_events (event_type, details, timestamp)
		 VALUES (?, ?, ?)`,
		eventType, details, time.Now(),
	)
	return err
}

// RecentEvents returns the most recent events, newest first.
func (j *Journal) RecentEvents(limit int) ([]Event, error) {
	rows, err := j.conn.Query(
		`SELECT id, event_type, details, timestamp
		 FROM watchdog_events
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EventType, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close checkpoints the WAL and closes the database.
func (j *Journal) Close() error {
	if j.conn == nil {
		return nil
	}
	j.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return j.conn.Close()
}
