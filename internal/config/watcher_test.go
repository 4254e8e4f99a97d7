package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/vocifer/internal/config"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "vocifer.yaml")
	writeConfigFile(t, path, "server:\n  log_level: warn\n")

	w, err := config.NewWatcher(path, nil, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.LogLevel; got != config.LogWarn {
		t.Errorf("initial log level = %q, want warn", got)
	}
}

func TestWatcher_InvalidInitialConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "vocifer.yaml")
	writeConfigFile(t, path, "server:\n  log_level: shouty\n")

	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Fatal("NewWatcher accepted an invalid config")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "vocifer.yaml")
	writeConfigFile(t, path, "server:\n  log_level: info\n")

	changed := make(chan config.ConfigDiff, 1)
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		changed <- config.Diff(old, new)
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Backdate the mtime comparison by making sure the rewrite lands on a
	// different timestamp.
	time.Sleep(20 * time.Millisecond)
	writeConfigFile(t, path, "server:\n  log_level: debug\n")

	select {
	case d := <-changed:
		if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
			t.Errorf("diff = %+v, want log level change to debug", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never reported the change")
	}

	if got := w.Current().Server.LogLevel; got != config.LogDebug {
		t.Errorf("Current log level = %q, want debug", got)
	}
}

func TestWatcher_KeepsOldConfigOnInvalidUpdate(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "vocifer.yaml")
	writeConfigFile(t, path, "server:\n  log_level: info\n")

	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		t.Error("onChange fired for an invalid config")
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeConfigFile(t, path, "server:\n  log_level: {broken\n")

	// Give the poller a few cycles to (not) pick it up.
	time.Sleep(100 * time.Millisecond)

	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("Current log level = %q, want the previous info", got)
	}
}
