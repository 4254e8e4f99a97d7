// Package config provides the configuration schema, loader, file watcher, and
// synthesizer registry for the Vocifer voice engine.
package config

import "log/slog"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l onto the slog level scale. Unknown levels map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure for Vocifer.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Rules    RulesConfig    `yaml:"rules"`
	Provider ProviderConfig `yaml:"provider"`

	// LoreHints maps display names to known gender/tag overrides that take
	// precedence over name heuristics during classification.
	LoreHints map[string]LoreHintConfig `yaml:"lore_hints"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint. Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// StorageConfig selects where voice assignments are persisted.
type StorageConfig struct {
	// DataDir is the directory holding the flat-JSON assignment store.
	// Defaults to "data".
	DataDir string `yaml:"data_dir"`

	// PostgresDSN, when set, switches the assignment store from the JSON
	// file to a Postgres table.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// CacheConfig configures the synthesis cache.
type CacheConfig struct {
	// Dir is the cache root directory. Defaults to "<data_dir>/cache".
	Dir string `yaml:"dir"`

	// Version is mixed into every content address. Bump it to invalidate
	// all cached audio at once. Defaults to "1".
	Version string `yaml:"version"`
}

// RulesConfig locates voice rule files.
type RulesConfig struct {
	// Dirs are directories scanned for *.json rule documents, merged in
	// order: later directories override earlier ones. Missing directories
	// are skipped.
	Dirs []string `yaml:"dirs"`
}

// ProviderConfig selects and configures the speech vendor.
type ProviderConfig struct {
	// Name is the active provider, "eleven" or "piper". Defaults to
	// "eleven".
	Name string `yaml:"name"`

	Eleven ElevenConfig `yaml:"eleven"`

	// PlaceholderMale and PlaceholderFemale override the built-in
	// last-resort placeholder voices. Assignments landing on a placeholder
	// are never persisted.
	PlaceholderMale   string `yaml:"placeholder_male"`
	PlaceholderFemale string `yaml:"placeholder_female"`

	// PreassignWorkers bounds bulk re-voice concurrency. Zero uses the
	// engine default.
	PreassignWorkers int `yaml:"preassign_workers"`
}

// ElevenConfig holds ElevenLabs API settings.
type ElevenConfig struct {
	// APIKey authenticates against the ElevenLabs API. Falls back to the
	// ELEVENLABS_API_KEY environment variable when empty.
	APIKey string `yaml:"api_key"`

	// Model selects the TTS model. Empty uses the client default.
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string `yaml:"base_url"`
}

// LoreHintConfig is one lore entry: a known gender and extra tags for a
// specific display name.
type LoreHintConfig struct {
	Gender string   `yaml:"gender"`
	Tags   []string `yaml:"tags"`
}
