package watchdog

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging configures the default slog logger. With a log file the
// output goes through a size-rotated file (the detached watchdog has no
// stderr worth writing to); otherwise it goes to stderr, colored only when
// stderr is a terminal. The returned writer is shared with the server's
// stdout/stderr so its output lands in the same place.
func SetupLogging(logFile string) io.Writer {
	var w io.Writer
	noColor := true

	if logFile != "" {
		w = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	} else {
		w = os.Stderr
		noColor = !term.IsTerminal(int(os.Stderr.Fd()))
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
	})
	slog.SetDefault(slog.New(handler))

	return w
}
