package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.ServerPath != DefaultServerPath {
		t.Errorf("expected server path %q, got %q", DefaultServerPath, cfg.ServerPath)
	}
	if cfg.PIDFile != DefaultPIDFile {
		t.Errorf("expected PID file %q, got %q", DefaultPIDFile, cfg.PIDFile)
	}
	if cfg.MaxRestarts != 10 {
		t.Errorf("expected max restarts 10, got %d", cfg.MaxRestarts)
	}
	if cfg.RestartWindow != 60*time.Second {
		t.Errorf("expected restart window 60s, got %v", cfg.RestartWindow)
	}
	if cfg.InitialBackoff != time.Second {
		t.Errorf("expected initial backoff 1s, got %v", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff != 30*time.Second {
		t.Errorf("expected max backoff 30s, got %v", cfg.MaxBackoff)
	}
	if cfg.Foreground {
		t.Error("expected foreground off by default")
	}
}

func TestLoadFile_OverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.hcl")
	content := `
journal_path = "/var/lib/jws/watchdog.db"

restart {
  max_restarts    = 5
  initial_backoff = "500ms"
}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.JournalPath != "/var/lib/jws/watchdog.db" {
		t.Errorf("journal_path not applied: %q", cfg.JournalPath)
	}
	if cfg.MaxRestarts != 5 {
		t.Errorf("max_restarts not applied: %d", cfg.MaxRestarts)
	}
	if cfg.InitialBackoff != 500*time.Millisecond {
		t.Errorf("initial_backoff not applied: %v", cfg.InitialBackoff)
	}
	// Values absent from the file keep defaults.
	if cfg.RestartWindow != DefaultRestartWindow {
		t.Errorf("window should keep default, got %v", cfg.RestartWindow)
	}
	if cfg.MaxBackoff != DefaultMaxBackoff {
		t.Errorf("max_backoff should keep default, got %v", cfg.MaxBackoff)
	}
}

func TestLoadFile_RelativePathsResolveAgainstConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watchdog.hcl")
	content := `
journal_path = "journal/watchdog.db"
log_file     = "watchdog.log"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if want := filepath.Join(dir, "journal", "watchdog.db"); cfg.JournalPath != want {
		t.Errorf("journal_path: expected %q, got %q", want, cfg.JournalPath)
	}
	if want := filepath.Join(dir, "watchdog.log"); cfg.LogFile != want {
		t.Errorf("log_file: expected %q, got %q", want, cfg.LogFile)
	}
}

func TestLoadFile_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.hcl")
	content := `
restart {
  window = "sixty seconds"
}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	if err := cfg.LoadFile(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "nope.hcl")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestResolveServerPath(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing binary", func(t *testing.T) {
		cfg := NewConfig()
		cfg.ServerPath = filepath.Join(dir, "absent")
		if err := cfg.ResolveServerPath(); err == nil {
			t.Error("expected error for missing binary")
		}
	})

	t.Run("not executable", func(t *testing.T) {
		path := filepath.Join(dir, "plain-file")
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg := NewConfig()
		cfg.ServerPath = path
		if err := cfg.ResolveServerPath(); err == nil {
			t.Error("expected error for non-executable binary")
		}
	})

	t.Run("relative path resolved absolute", func(t *testing.T) {
		path := filepath.Join(dir, "server")
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}

		oldWD, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Chdir(oldWD) })
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}

		cfg := NewConfig()
		cfg.ServerPath = "./server"
		if err := cfg.ResolveServerPath(); err != nil {
			t.Fatalf("ResolveServerPath failed: %v", err)
		}
		if !filepath.IsAbs(cfg.ServerPath) {
			t.Errorf("expected absolute path, got %q", cfg.ServerPath)
		}
	})
}
