// Package watchdog implements the supervision core: it launches the server
// binary, monitors its liveness and restarts it after unexpected termination
// under a sliding-window restart budget with exponential backoff.
package watchdog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/justweather/watchdog/internal/core"
	"github.com/justweather/watchdog/internal/journal"
)

const defaultPollInterval = 100 * time.Millisecond

// monitorEvent is the reason monitor() handed control back to the loop.
type monitorEvent int

const (
	eventExited monitorEvent = iota
	eventShutdown
	eventBinaryChanged
)

// Supervisor owns the single supervised child process. All state except the
// shutdown flag and the child PID snapshot is touched only by the goroutine
// running Run; the two atomics exist so the signal bridge can forward a
// terminate signal without any locking.
type Supervisor struct {
	cfg     *core.Config
	policy  *RestartPolicy
	journal *journal.Journal // nil when no journal is configured

	shutdown atomic.Bool
	childPID atomic.Int64

	binaryChanged chan string

	pollInterval time.Duration
	childOutput  io.Writer
}

// New creates a supervisor for the configured server binary.
func New(cfg *core.Config, policy *RestartPolicy, j *journal.Journal) *Supervisor {
	return &Supervisor{
		cfg:           cfg,
		policy:        policy,
		journal:       j,
		binaryChanged: make(chan string, 1),
		pollInterval:  defaultPollInterval,
	}
}

// SetChildOutput redirects the server's stdout and stderr to w. Without it
// the server inherits the watchdog's own streams, which in daemon mode point
// at /dev/null.
func (s *Supervisor) SetChildOutput(w io.Writer) {
	s.childOutput = w
}

// RequestShutdown sets the shutdown flag and forwards a terminate signal to
// the running child, if any. Safe to call from any goroutine; signalling an
// already-exited PID is a no-op failure and is ignored.
func (s *Supervisor) RequestShutdown() {
	s.shutdown.Store(true)
	s.signalChild()
}

// NotifyBinaryChanged asks the loop for an intentional restart of the server.
// The notification is dropped if one is already pending.
func (s *Supervisor) NotifyBinaryChanged(path string) {
	select {
	case s.binaryChanged <- path:
	default:
	}
}

// Run drives the spawn → monitor → decide cycle until a clean server exit, a
// shutdown request, or an exhausted restart budget. The returned error is
// reserved for future startup-shaped failures; policy outcomes all end the
// loop with nil so the process exits 0 the way it always has.
func (s *Supervisor) Run() error {
	s.logEvent("start", fmt.Sprintf("supervising %s, watchdog PID %d", s.cfg.ServerPath, os.Getpid()))

	for !s.shutdown.Load() {
		waitCh, err := s.spawn()
		if err != nil {
			// Spawn failure is an ordinary crash as far as the restart
			// policy is concerned.
			slog.Error("Failed to spawn server", "error", err)
			s.logEvent("spawn_failed", err.Error())
			if s.shutdown.Load() {
				break
			}
			if !s.giveUpOrBackoff() {
				return nil
			}
			continue
		}

		event, waitErr := s.monitor(waitCh)
		switch event {
		case eventShutdown:
			s.terminateChild(waitCh)
			s.logEvent("shutdown", "terminate signal received, server stopped")
			slog.Info("Shutdown complete")
			return nil

		case eventBinaryChanged:
			slog.Info("Server binary changed, restarting server", "path", s.cfg.ServerPath)
			s.terminateChild(waitCh)
			s.logEvent("binary_changed", "server restarted after binary update")
			// Intentional restart, not counted against the budget.
			continue

		case eventExited:
			s.childPID.Store(0)
			if waitErr == nil {
				// Exit status 0 means the server asked to be decommissioned.
				slog.Info("Server exited cleanly, watchdog exiting")
				s.logEvent("clean_exit", "server exited with status 0")
				return nil
			}

			slog.Warn("Server crashed", "error", waitErr)
			s.logEvent("crash", waitErr.Error())
			if s.shutdown.Load() {
				return nil
			}
			if !s.giveUpOrBackoff() {
				return nil
			}
		}
	}

	return nil
}

// spawn launches the server with no arguments and starts a reaper goroutine.
// The returned channel delivers the exit status exactly once.
func (s *Supervisor) spawn() (<-chan error, error) {
	cmd := exec.Command(s.cfg.ServerPath)
	if s.childOutput != nil {
		cmd.Stdout = s.childOutput
		cmd.Stderr = s.childOutput
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", s.cfg.ServerPath, err)
	}

	pid := cmd.Process.Pid
	s.childPID.Store(int64(pid))
	slog.Info("Server started", "pid", pid)
	s.logEvent("spawn", fmt.Sprintf("server PID %d", pid))

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	return waitCh, nil
}

// monitor watches the running child. It returns when the child exits, when a
// shutdown has been requested (checked every poll interval so the loop stays
// responsive), or when the binary watcher asks for a restart.
func (s *Supervisor) monitor(waitCh <-chan error) (monitorEvent, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-waitCh:
			return eventExited, err
		case <-ticker.C:
			if s.shutdown.Load() {
				return eventShutdown, nil
			}
		case <-s.binaryChanged:
			return eventBinaryChanged, nil
		}
	}
}

// giveUpOrBackoff consults the restart policy after a crash. It returns false
// when the budget for the current window is exhausted, otherwise it applies
// the backoff delay and returns true.
func (s *Supervisor) giveUpOrBackoff() bool {
	if !s.policy.ShouldRestart() {
		slog.Error("Restart budget exhausted, giving up",
			"restarts", s.policy.RestartCount(),
			"window", s.cfg.RestartWindow)
		s.logEvent("give_up", fmt.Sprintf("%d restarts within %s", s.policy.RestartCount(), s.cfg.RestartWindow))
		return false
	}

	backoff := s.policy.CurrentBackoff()
	slog.Info("Restarting server after backoff",
		"backoff", backoff,
		"attempt", s.policy.RestartCount()+1,
		"max", s.cfg.MaxRestarts)
	s.logEvent("restart", fmt.Sprintf("attempt %d/%d after %s backoff", s.policy.RestartCount()+1, s.cfg.MaxRestarts, backoff))
	s.policy.ApplyBackoff()
	return true
}

// terminateChild forwards a terminate signal to the child and blocks until it
// has been reaped. The signal is idempotent with the one the signal bridge
// may already have sent.
func (s *Supervisor) terminateChild(waitCh <-chan error) {
	s.signalChild()
	<-waitCh
	s.childPID.Store(0)
}

func (s *Supervisor) signalChild() {
	pid := s.childPID.Load()
	if pid <= 0 {
		return
	}
	proc, err := os.FindProcess(int(pid))
	if err != nil {
		return
	}
	// The child may have exited between the snapshot and the signal.
	proc.Signal(syscall.SIGTERM)
}

func (s *Supervisor) logEvent(eventType, details string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.LogEvent(eventType, details); err != nil {
		slog.Error("Failed to record journal event", "event", eventType, "error", err)
	}
}
