package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the provider names the engine ships voice tables
// for. [Validate] warns about anything else.
var ValidProviderNames = []string{"eleven", "piper"}

// validGenders lists accepted lore-hint gender values.
var validGenders = []string{"male", "female", "unknown", ""}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(cfg.Storage.DataDir, "cache")
	}
	if cfg.Cache.Version == "" {
		cfg.Cache.Version = "1"
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "eleven"
	}
	if cfg.Provider.Eleven.APIKey == "" {
		cfg.Provider.Eleven.APIKey = os.Getenv("ELEVENLABS_API_KEY")
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !slices.Contains(ValidProviderNames, cfg.Provider.Name) {
		slog.Warn("unrecognised provider name; built-in voice tables will not apply",
			"name", cfg.Provider.Name, "known", ValidProviderNames)
	}

	if cfg.Provider.Name == "eleven" && cfg.Provider.Eleven.APIKey == "" {
		slog.Warn("no ElevenLabs API key configured; synthesis calls will be rejected")
	}

	if cfg.Provider.PreassignWorkers < 0 {
		errs = append(errs, fmt.Errorf("provider.preassign_workers must not be negative, got %d", cfg.Provider.PreassignWorkers))
	}

	for name, hint := range cfg.LoreHints {
		if !slices.Contains(validGenders, hint.Gender) {
			errs = append(errs, fmt.Errorf("lore_hints[%q].gender %q is invalid; valid values: male, female, unknown", name, hint.Gender))
		}
	}

	return errors.Join(errs...)
}
