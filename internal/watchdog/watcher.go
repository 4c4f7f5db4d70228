package watchdog

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Events for the same rebuild tend to arrive in bursts; collapse them.
const watchDebounce = 500 * time.Millisecond

// BinaryWatcher watches the server binary and requests an intentional
// restart from the supervisor when it changes, so a redeployed server is
// picked up without burning restart budget.
type BinaryWatcher struct {
	watcher *fsnotify.Watcher
	sup     *Supervisor
	path    string
}

// WatchBinary starts watching the server binary at path, which must be
// absolute. The containing directory is watched rather than the file itself
// because deploys usually replace the file, which would drop a file-level
// watch.
func WatchBinary(sup *Supervisor, path string) (*BinaryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create binary watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	bw := &BinaryWatcher{watcher: w, sup: sup, path: path}
	go bw.loop()
	return bw, nil
}

func (bw *BinaryWatcher) loop() {
	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-bw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != bw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
				fire = debounce.C
			} else {
				debounce.Reset(watchDebounce)
			}

		case <-fire:
			slog.Debug("Server binary changed on disk", "path", bw.path)
			bw.sup.NotifyBinaryChanged(bw.path)

		case err, ok := <-bw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Binary watcher error", "error", err)
		}
	}
}

// Close stops the watcher and its goroutine.
func (bw *BinaryWatcher) Close() error {
	return bw.watcher.Close()
}
