// Package rules resolves game-character names and tags to candidate voices
// using layered, user-editable rule files.
//
// Rule layers, in priority order: exact name match, regex match, tag mapping
// from rule files, built-in per-provider tag defaults, and gendered category
// pools for providers with static catalogues. Rule documents are JSON objects
// with the top-level keys "npcExact", "npcRegex", and "tags"; values may
// carry a "Provider:" prefix restricting the rule to one provider and a
// "|style=" suffix carrying a speaking-style directive. Both are parsed once
// at load time.
//
// A [Resolver] is read-only after construction and safe for concurrent use.
package rules

import "strings"

// Rule is one parsed voice rule value. The raw file syntax
// "Provider:voice|style=value" is decomposed at load time so lookups never
// re-parse strings.
type Rule struct {
	// Provider restricts the rule to the named provider when non-empty.
	// Matching is case-insensitive. A rule scoped to another provider is
	// skipped entirely, not used as a fallback.
	Provider string

	// Voice is the voice identifier to use.
	Voice string

	// Style is an optional speaking-style directive.
	Style string
}

// IsZero reports whether the rule carries no voice.
func (r Rule) IsZero() bool {
	return r.Voice == ""
}

// AppliesTo reports whether the rule may be used for the given provider.
func (r Rule) AppliesTo(provider string) bool {
	return r.Provider == "" || strings.EqualFold(r.Provider, provider)
}

// ParseRule decomposes a raw rule value into its provider scope, voice, and
// style parts. Unscoped values parse with an empty Provider. An empty input
// yields the zero Rule.
func ParseRule(raw string) Rule {
	var rule Rule
	s := strings.TrimSpace(raw)
	if s == "" {
		return rule
	}

	if voice, style, ok := strings.Cut(s, "|style="); ok {
		rule.Style = strings.TrimSpace(style)
		s = strings.TrimSpace(voice)
	}

	// A colon marks provider scoping ("Eleven:aria") unless it appears in
	// a path-like or URL-like voice value with no sensible prefix.
	if prefix, voice, ok := strings.Cut(s, ":"); ok && prefix != "" && voice != "" && !strings.Contains(prefix, " ") {
		rule.Provider = prefix
		rule.Voice = strings.TrimSpace(voice)
		return rule
	}
	rule.Voice = s
	return rule
}
