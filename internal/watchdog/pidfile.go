package watchdog

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// WritePIDFile records the watchdog's own PID as decimal text followed by a
// newline, truncating any existing file. External tooling reads this file to
// check whether the watchdog is alive.
func WritePIDFile(path string) error {
	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", path, err)
	}
	return nil
}

// RemovePIDFile removes the PID file. Failure to remove is logged but never
// fatal: by the time this runs the watchdog is shutting down anyway.
func RemovePIDFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove PID file", "path", path, "error", err)
	}
}

// ReadPIDFile parses the PID recorded in the file at path. Used by the status
// and stop commands, never by the running watchdog itself.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID file %s: %q", path, data)
	}
	return pid, nil
}
