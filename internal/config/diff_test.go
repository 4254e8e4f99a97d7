package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/vocifer/internal/config"
)

func mustLoad(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	a := mustLoad(t, fullConfig)
	b := mustLoad(t, fullConfig)
	if d := config.Diff(a, b); d.Any() {
		t.Errorf("identical configs produced diff %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	a := mustLoad(t, "server:\n  log_level: info\n")
	b := mustLoad(t, "server:\n  log_level: debug\n")

	d := config.Diff(a, b)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v, want log level change to debug", d)
	}
	if d.RestartRequired {
		t.Error("log level change must not require a restart")
	}
}

func TestDiff_RuleDirs(t *testing.T) {
	t.Parallel()
	a := mustLoad(t, "rules:\n  dirs: [/etc/vocifer/rules]\n")
	b := mustLoad(t, "rules:\n  dirs: [/etc/vocifer/rules, /tmp/extra]\n")

	if d := config.Diff(a, b); !d.RulesChanged {
		t.Errorf("diff = %+v, want RulesChanged", d)
	}
}

func TestDiff_CacheVersion(t *testing.T) {
	t.Parallel()
	a := mustLoad(t, "cache:\n  version: \"1\"\n")
	b := mustLoad(t, "cache:\n  version: \"2\"\n")

	if d := config.Diff(a, b); !d.CacheVersionChanged {
		t.Errorf("diff = %+v, want CacheVersionChanged", d)
	}
}

func TestDiff_LoreHints(t *testing.T) {
	t.Parallel()
	a := mustLoad(t, "lore_hints:\n  Zanik:\n    gender: female\n")
	b := mustLoad(t, "lore_hints:\n  Zanik:\n    gender: male\n")

	if d := config.Diff(a, b); !d.LoreHintsChanged {
		t.Errorf("diff = %+v, want LoreHintsChanged", d)
	}
}

func TestDiff_ProviderRequiresRestart(t *testing.T) {
	t.Parallel()
	a := mustLoad(t, "provider:\n  name: eleven\n")
	b := mustLoad(t, "provider:\n  name: piper\n")

	if d := config.Diff(a, b); !d.RestartRequired {
		t.Errorf("diff = %+v, want RestartRequired", d)
	}
}

func TestDiff_StorageRequiresRestart(t *testing.T) {
	t.Parallel()
	a := mustLoad(t, "storage:\n  data_dir: /a\n")
	b := mustLoad(t, "storage:\n  data_dir: /b\n")

	if d := config.Diff(a, b); !d.RestartRequired {
		t.Errorf("diff = %+v, want RestartRequired", d)
	}
}
