package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/justweather/watchdog/internal/core"
	"github.com/justweather/watchdog/internal/journal"
	"github.com/justweather/watchdog/internal/watchdog"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	cfg := core.NewConfig()
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "jws-watchdog",
		Short: "Process watchdog for just-weather-server",
		Long: `jws-watchdog supervises the just-weather-server process: it launches the
server, monitors its liveness and restarts it after a crash, with exponential
backoff bounded by a sliding restart-count window. A server that exits with
status 0 is treated as intentionally decommissioned and is not restarted.

Without --foreground the watchdog detaches from the terminal and logs to a
rotating file.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchdog(cfg, configPath)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&cfg.ServerPath, "server", "s", core.DefaultServerPath, "path to the server binary to supervise")
	flags.StringVarP(&cfg.PIDFile, "pid", "p", core.DefaultPIDFile, "PID file path")
	flags.BoolVarP(&cfg.Foreground, "foreground", "f", false, "run in the foreground (don't daemonize)")
	flags.BoolVarP(&cfg.Watch, "watch", "w", false, "restart the server when its binary changes on disk")
	flags.StringVarP(&configPath, "config", "c", "", "HCL config file (restart policy, journal, log file)")

	rootCmd.AddCommand(
		NewStatusCommand(),
		NewStopCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}

// runWatchdog sequences startup: config → path resolution → detach → logging
// → PID file → journal → signal bridge → supervision loop. Any failure
// before the loop starts surfaces as an error, which exits the process with
// code 1 and no PID file left behind.
func runWatchdog(cfg *core.Config, configPath string) error {
	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			return err
		}
	}

	// Must happen before the detach changes the working directory to /.
	if err := cfg.ResolveServerPath(); err != nil {
		return err
	}

	// The PID file and config paths must survive that change too.
	pidAbs, err := filepath.Abs(cfg.PIDFile)
	if err != nil {
		return fmt.Errorf("cannot resolve PID file path %s: %w", cfg.PIDFile, err)
	}
	cfg.PIDFile = pidAbs
	if configPath != "" {
		configPath, err = filepath.Abs(configPath)
		if err != nil {
			return fmt.Errorf("cannot resolve config file path: %w", err)
		}
	}

	if !cfg.Foreground && !watchdog.Daemonized() {
		slog.Info("Starting watchdog daemon...")
		if err := watchdog.Daemonize(daemonArgs(cfg, configPath)); err != nil {
			return err
		}
		// The detached child takes over from here.
		return nil
	}

	if watchdog.Daemonized() {
		watchdog.FinishDetach()
		if cfg.LogFile == "" {
			cfg.LogFile = core.DefaultLogFile
		}
	}

	logDest := watchdog.SetupLogging(cfg.LogFile)

	if err := watchdog.WritePIDFile(cfg.PIDFile); err != nil {
		return err
	}
	defer watchdog.RemovePIDFile(cfg.PIDFile)

	var j *journal.Journal
	if cfg.JournalPath != "" {
		var err error
		j, err = journal.Open(cfg.JournalPath)
		if err != nil {
			// The journal is history, not control flow; run without it.
			slog.Error("Failed to open event journal", "path", cfg.JournalPath, "error", err)
		} else {
			defer j.Close()
		}
	}

	sup := watchdog.New(cfg, watchdog.NewRestartPolicy(cfg), j)
	sup.SetChildOutput(logDest)
	sup.InstallSignalBridge()

	if cfg.Watch {
		bw, err := watchdog.WatchBinary(sup, cfg.ServerPath)
		if err != nil {
			slog.Warn("Binary watching disabled", "error", err)
		} else {
			defer bw.Close()
		}
	}

	return sup.Run()
}

// daemonArgs rebuilds the detached child's argv from the resolved
// configuration instead of forwarding os.Args, so the relative paths the
// operator typed never reach a process whose working directory is /.
func daemonArgs(cfg *core.Config, configPath string) []string {
	args := []string{"--server", cfg.ServerPath, "--pid", cfg.PIDFile}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if cfg.Watch {
		args = append(args, "--watch")
	}
	return args
}
