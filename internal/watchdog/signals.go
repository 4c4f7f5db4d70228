package watchdog

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// InstallSignalBridge translates interrupt and terminate signals into the
// supervisor's shutdown flag and forwards a terminate signal to the running
// child. All actual cleanup happens in the supervision loop after it observes
// the flag, never here.
func (s *Supervisor) InstallSignalBridge() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range ch {
			slog.Info("Shutdown signal received", "signal", sig.String())
			s.RequestShutdown()
		}
	}()
}
