package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/justweather/watchdog/internal/core"
	"github.com/justweather/watchdog/internal/journal"
	"github.com/justweather/watchdog/internal/watchdog"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
)

func NewStatusCommand() *cobra.Command {
	var pidFile string
	var configPath string
	var events int

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the watchdog and server are running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg := core.NewConfig()
			if configPath != "" {
				if err := cfg.LoadFile(configPath); err != nil {
					return err
				}
			}
			if events > 0 && cfg.JournalPath == "" {
				fmt.Fprintln(out, "No event journal configured; pass --config with a journal_path to record events")
			}

			pid, err := watchdog.ReadPIDFile(pidFile)
			if err != nil {
				fmt.Fprintf(out, "Watchdog is not running (no PID file at %s)\n", pidFile)
				return nil
			}

			exists, err := process.PidExists(int32(pid))
			if err != nil {
				return fmt.Errorf("failed to check PID %d: %w", pid, err)
			}
			if !exists {
				fmt.Fprintf(out, "Watchdog is not running (stale PID file at %s, PID %d)\n", pidFile, pid)
				return nil
			}

			proc, err := process.NewProcess(int32(pid))
			if err != nil {
				return fmt.Errorf("failed to inspect PID %d: %w", pid, err)
			}

			since := ""
			if created, err := proc.CreateTime(); err == nil {
				since = time.UnixMilli(created).Format(time.DateTime)
			}
			fmt.Fprintf(out, "Watchdog running (PID %d) since %s\n", pid, since)

			children, err := proc.Children()
			if err != nil || len(children) == 0 {
				fmt.Fprintln(out, "No server child currently running")
			} else {
				for _, child := range children {
					name, _ := child.Name()
					fmt.Fprintf(out, "Server running (PID %d, %s)\n", child.Pid, name)
				}
			}

			if events > 0 && cfg.JournalPath != "" {
				if err := printRecentEvents(out, cfg.JournalPath, events); err != nil {
					return err
				}
			}

			return nil
		},
	}

	statusCmd.Flags().StringVarP(&pidFile, "pid", "p", core.DefaultPIDFile, "PID file path")
	statusCmd.Flags().StringVarP(&configPath, "config", "c", "", "HCL config file (to locate the event journal)")
	statusCmd.Flags().IntVarP(&events, "events", "n", 0, "show the N most recent journal events")

	return statusCmd
}

func printRecentEvents(out io.Writer, journalPath string, limit int) error {
	j, err := journal.Open(journalPath)
	if err != nil {
		return fmt.Errorf("failed to open event journal: %w", err)
	}
	defer j.Close()

	events, err := j.RecentEvents(limit)
	if err != nil {
		return fmt.Errorf("failed to read event journal: %w", err)
	}

	fmt.Fprintln(out, "\nRecent events:")
	for _, e := range events {
		fmt.Fprintf(out, "  %s  %-15s %s\n", e.Timestamp.Format(time.DateTime), e.EventType, e.Details)
	}
	return nil
}
