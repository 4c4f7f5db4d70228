//go:build unix

package watchdog

import (
	"slices"
	"testing"
)

func TestDaemonized(t *testing.T) {
	if Daemonized() {
		t.Fatal("Daemonized reported true without the marker set")
	}

	t.Setenv(daemonEnv, "1")
	if !Daemonized() {
		t.Error("Daemonized reported false with the marker set")
	}

	t.Setenv(daemonEnv, "0")
	if Daemonized() {
		t.Error("Daemonized reported true with a cleared marker")
	}
}

func TestDaemonCommand_DetachedChildSetup(t *testing.T) {
	args := []string{"--server", "/opt/jws/just-weather-server", "--pid", "/run/jws-watchdog.pid"}

	cmd, devnull, err := daemonCommand(args)
	if err != nil {
		t.Fatalf("daemonCommand failed: %v", err)
	}
	defer devnull.Close()

	// The caller's argv must be forwarded verbatim: the child re-parses it
	// from /, so it has to carry the already-resolved absolute paths.
	if got := cmd.Args[1:]; !slices.Equal(got, args) {
		t.Errorf("child argv: expected %v, got %v", args, got)
	}

	if cmd.Dir != "/" {
		t.Errorf("expected child working directory /, got %q", cmd.Dir)
	}
	if !slices.Contains(cmd.Env, daemonEnv+"=1") {
		t.Error("child environment is missing the detach marker")
	}
	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setsid {
		t.Error("child is not started in a new session")
	}
	if cmd.Stdin != devnull || cmd.Stdout != devnull || cmd.Stderr != devnull {
		t.Error("child standard streams are not on the null device")
	}
}
