package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

const (
	DefaultServerPath = "./just-weather-server"
	DefaultPIDFile    = "/tmp/jws-watchdog.pid"
	DefaultLogFile    = "/tmp/jws-watchdog.log"
)

// Restart policy defaults. The config file can override them per host.
const (
	DefaultMaxRestarts    = 10
	DefaultRestartWindow  = 60 * time.Second
	DefaultInitialBackoff = 1000 * time.Millisecond
	DefaultMaxBackoff     = 30000 * time.Millisecond
)

// Config is the immutable run configuration for the watchdog. It is built
// once at startup from CLI flags and an optional HCL config file, and is not
// mutated after ResolveServerPath.
type Config struct {
	ServerPath string // absolute after ResolveServerPath
	PIDFile    string
	Foreground bool
	Watch      bool

	MaxRestarts    int
	RestartWindow  time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	JournalPath string
	LogFile     string
}

// NewConfig returns a configuration populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		ServerPath:     DefaultServerPath,
		PIDFile:        DefaultPIDFile,
		MaxRestarts:    DefaultMaxRestarts,
		RestartWindow:  DefaultRestartWindow,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
	}
}

// fileConfig is the HCL schema for the optional config file.
type fileConfig struct {
	JournalPath string        `hcl:"journal_path,optional"`
	LogFile     string        `hcl:"log_file,optional"`
	Restart     *restartBlock `hcl:"restart,block"`
}

type restartBlock struct {
	MaxRestarts    int    `hcl:"max_restarts,optional"`
	Window         string `hcl:"window,optional"`
	InitialBackoff string `hcl:"initial_backoff,optional"`
	MaxBackoff     string `hcl:"max_backoff,optional"`
}

// LoadFile merges settings from an HCL config file into the configuration.
// Values not present in the file keep their current values.
func (c *Config) LoadFile(path string) error {
	var fc fileConfig
	if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Relative paths in the file are relative to the file itself, so they
	// keep their meaning after the daemonized watchdog moves to /.
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("cannot resolve config directory for %s: %w", path, err)
	}

	if fc.JournalPath != "" {
		c.JournalPath = resolvePath(fc.JournalPath, dir)
	}
	if fc.LogFile != "" {
		c.LogFile = resolvePath(fc.LogFile, dir)
	}

	if fc.Restart != nil {
		if fc.Restart.MaxRestarts > 0 {
			c.MaxRestarts = fc.Restart.MaxRestarts
		}
		if err := setDuration(&c.RestartWindow, fc.Restart.Window, "window"); err != nil {
			return err
		}
		if err := setDuration(&c.InitialBackoff, fc.Restart.InitialBackoff, "initial_backoff"); err != nil {
			return err
		}
		if err := setDuration(&c.MaxBackoff, fc.Restart.MaxBackoff, "max_backoff"); err != nil {
			return err
		}
	}

	return nil
}

func resolvePath(p, dir string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func setDuration(dst *time.Duration, value, name string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid restart.%s %q: %w", name, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("restart.%s must be positive, got %q", name, value)
	}
	*dst = d
	return nil
}

// ResolveServerPath verifies the server binary exists and is executable, and
// resolves it to an absolute path. This must happen before daemonization
// changes the working directory to /.
func (c *Config) ResolveServerPath() error {
	info, err := os.Stat(c.ServerPath)
	if err != nil {
		return fmt.Errorf("server binary not found: %s", c.ServerPath)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("server binary is not executable: %s", c.ServerPath)
	}

	abs, err := filepath.Abs(c.ServerPath)
	if err != nil {
		return fmt.Errorf("cannot resolve server path %s: %w", c.ServerPath, err)
	}
	c.ServerPath = abs

	return nil
}
