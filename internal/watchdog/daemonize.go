//go:build unix

package watchdog

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// daemonEnv marks the re-exec'd child so it skips a second detach.
const daemonEnv = "JWS_WATCHDOG_DETACHED"

// Daemonized reports whether this process is the detached child of a
// previous Daemonize call.
func Daemonized() bool {
	return os.Getenv(daemonEnv) == "1"
}

// Daemonize detaches the watchdog from its controlling terminal by
// re-executing itself in a new session with the working directory on the
// filesystem root and all standard streams on the null device. The caller
// exits 0 on success; the re-exec'd child observes Daemonized() and carries
// on. The caller supplies the child's argv rebuilt from the resolved
// configuration: the child runs from /, so every path in it must already
// be absolute.
func Daemonize(args []string) error {
	cmd, devnull, err := daemonCommand(args)
	if err != nil {
		return err
	}
	defer devnull.Close()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch detached watchdog: %w", err)
	}

	return nil
}

// daemonCommand builds the re-exec command without starting it.
func daemonCommand(args []string) (*exec.Cmd, *os.File, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot determine own executable: %w", err)
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open %s: %w", os.DevNull, err)
	}

	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), daemonEnv+"=1")
	cmd.Dir = "/"
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	return cmd, devnull, nil
}

// FinishDetach completes daemonization in the detached child by resetting
// the umask.
func FinishDetach() {
	syscall.Umask(0)
}
