package journal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestJournal_OpenAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Journal database file was not created")
	}
	if err := j.Close(); err != nil {
		t.Errorf("Failed to close journal: %v", err)
	}
}

func TestJournal_LogAndReadEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	defer j.Close()

	if err := j.LogEvent("spawn", "server PID 1234"); err != nil {
		t.Fatalf("Failed to log event: %v", err)
	}
	if err := j.LogEvent("crash", "exit status 1"); err != nil {
		t.Fatalf("Failed to log event: %v", err)
	}
	if err := j.LogEvent("restart", "attempt 1/10 after 1s backoff"); err != nil {
		t.Fatalf("Failed to log event: %v", err)
	}

	events, err := j.RecentEvents(2)
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	// Newest first.
	if events[0].EventType != "restart" {
		t.Errorf("expected newest event 'restart', got %q", events[0].EventType)
	}
	if events[1].EventType != "crash" {
		t.Errorf("expected second event 'crash', got %q", events[1].EventType)
	}
	if events[0].Timestamp.IsZero() {
		t.Error("event timestamp not recorded")
	}
}

func TestJournal_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "watchdog.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open journal in nested directory: %v", err)
	}
	defer j.Close()

	if err := j.LogEvent("start", ""); err != nil {
		t.Errorf("Failed to log event: %v", err)
	}
}
