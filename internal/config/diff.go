package config

import "slices"

// ConfigDiff describes what changed between two configs. Only fields that can
// be safely hot-reloaded are tracked individually; everything else sets
// RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RulesChanged is set when the rule directory list changed; the caller
	// should rebuild the resolver.
	RulesChanged bool

	// CacheVersionChanged is set when the cache version was bumped; new
	// utterances will miss the old entries.
	CacheVersionChanged bool

	// LoreHintsChanged is set when the lore table changed; the caller
	// should rebuild the classifier.
	LoreHintsChanged bool

	// RestartRequired is set when the provider or storage configuration
	// changed, which cannot be applied to a running engine.
	RestartRequired bool
}

// Any reports whether the diff contains any change at all.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.RulesChanged || d.CacheVersionChanged ||
		d.LoreHintsChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Rules.Dirs, new.Rules.Dirs) {
		d.RulesChanged = true
	}

	if old.Cache.Version != new.Cache.Version {
		d.CacheVersionChanged = true
	}

	if !equalLoreHints(old.LoreHints, new.LoreHints) {
		d.LoreHintsChanged = true
	}

	if old.Provider != new.Provider || old.Storage != new.Storage {
		d.RestartRequired = true
	}

	return d
}

func equalLoreHints(old, new map[string]LoreHintConfig) bool {
	if len(old) != len(new) {
		return false
	}
	for name, oh := range old {
		nh, ok := new[name]
		if !ok || oh.Gender != nh.Gender || !slices.Equal(oh.Tags, nh.Tags) {
			return false
		}
	}
	return true
}
