package cmd

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/justweather/watchdog/internal/core"
	"github.com/justweather/watchdog/internal/watchdog"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
)

const stopTimeout = 10 * time.Second

func NewStopCommand() *cobra.Command {
	var pidFile string

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running watchdog (and its server) gracefully",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := watchdog.ReadPIDFile(pidFile)
			if err != nil {
				fmt.Printf("Watchdog is not running (no PID file at %s)\n", pidFile)
				return nil
			}

			proc, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find watchdog process %d: %w", pid, err)
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				fmt.Printf("Watchdog is not running (stale PID file at %s, PID %d)\n", pidFile, pid)
				return nil
			}

			// The watchdog forwards the signal and waits for the server to
			// exit before removing its PID file, so give it a while.
			deadline := time.Now().Add(stopTimeout)
			for time.Now().Before(deadline) {
				exists, err := process.PidExists(int32(pid))
				if err == nil && !exists {
					fmt.Println("Watchdog stopped")
					return nil
				}
				time.Sleep(100 * time.Millisecond)
			}

			return fmt.Errorf("watchdog (PID %d) did not exit within %s", pid, stopTimeout)
		},
	}

	stopCmd.Flags().StringVarP(&pidFile, "pid", "p", core.DefaultPIDFile, "PID file path")

	return stopCmd
}
