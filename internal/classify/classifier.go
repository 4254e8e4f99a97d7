// Package classify derives stable identity keys and ephemeral metadata
// (gender, descriptive tags) from raw game-character display names.
//
// Classification is a pure function of the display name plus an optional
// static lore table: no I/O, no persisted state. Metadata is recomputed on
// every call and never stored, so table updates take effect immediately.
//
// A [Classifier] is safe for concurrent use once constructed.
package classify

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/vocifer/pkg/types"
)

// fuzzyLoreThreshold is the minimum Jaro-Winkler similarity for a display
// name to pick up a lore hint keyed under a near-miss spelling.
const fuzzyLoreThreshold = 0.92

// LoreHint is a static per-name override supplied by world lore: a known
// gender and/or extra tags that name heuristics cannot infer.
type LoreHint struct {
	// Gender overrides the heuristic result when not GenderUnknown.
	Gender types.Gender

	// Tags are added to the inferred tag set.
	Tags []string
}

// LoreHints maps normalized display names (see [NormalizeName]) to hints.
type LoreHints map[string]LoreHint

// Option is a functional option for configuring a [Classifier].
type Option func(*Classifier)

// WithLoreHints supplies a static lore table consulted during classification.
func WithLoreHints(hints LoreHints) Option {
	return func(c *Classifier) {
		c.lore = hints
	}
}

// Classifier infers gender and descriptive tags from display names using
// flat, ordered rule tables. The zero value is not usable; construct with
// [New].
type Classifier struct {
	genderKeywords []genderKeyword
	suffixRules    []suffixRule
	tagRules       []tagRule
	lore           LoreHints
}

// New returns a [Classifier] with the built-in rule tables applied, then
// the given options.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		genderKeywords: defaultGenderKeywords,
		suffixRules:    defaultSuffixRules,
		tagRules:       defaultTagRules,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify derives [types.Metadata] from a raw display name.
//
// Gender precedence, first match wins: lore hint, honorific/keyword table,
// name-suffix heuristics, GenderUnknown. Tag inference is cumulative: every
// matching tag rule fires, plus any lore-hint tags.
//
// Classify never fails: an empty or unrecognisable name yields
// GenderUnknown and an empty (non-nil) tag set.
func (c *Classifier) Classify(displayName string) types.Metadata {
	norm := NormalizeName(displayName)
	meta := types.Metadata{
		Gender: types.GenderUnknown,
		Tags:   make(map[string]struct{}),
	}
	if norm == "" {
		return meta
	}

	for _, rule := range c.tagRules {
		if strings.Contains(norm, rule.keyword) {
			meta.Tags[rule.tag] = struct{}{}
		}
	}

	hint, hinted := c.lookupLore(norm)
	if hinted {
		for _, t := range hint.Tags {
			if t != "" {
				meta.Tags[t] = struct{}{}
			}
		}
	}

	switch {
	case hinted && hint.Gender != "" && hint.Gender != types.GenderUnknown:
		meta.Gender = hint.Gender
	case meta.HasTag("kid"):
		// Child voices are picked from the kid pool; apparent name gender
		// is unreliable for children and must not trigger the guardrail.
		meta.Gender = types.GenderUnknown
	default:
		meta.Gender = c.inferGender(norm)
	}
	return meta
}

// inferGender applies the keyword table, then the suffix heuristics, to the
// normalized name.
func (c *Classifier) inferGender(norm string) types.Gender {
	for _, rule := range c.genderKeywords {
		if strings.Contains(norm, rule.keyword) {
			return rule.gender
		}
	}

	// Suffix heuristics apply to the personal name only (the first word),
	// so "Varlo the Goblin Guard" is judged on "varlo", not "guard".
	first, _, _ := strings.Cut(norm, " ")
	for _, rule := range c.suffixRules {
		if len(first) > len(rule.suffix) && strings.HasSuffix(first, rule.suffix) {
			return rule.gender
		}
	}
	return types.GenderUnknown
}

// lookupLore finds the lore hint for a normalized name. An exact key lookup
// is tried first; on a miss, the closest key by Jaro-Winkler similarity is
// accepted if it clears [fuzzyLoreThreshold], so near-miss spellings
// ("Varloe" vs "Varlo") still pick up their hints.
func (c *Classifier) lookupLore(norm string) (LoreHint, bool) {
	if len(c.lore) == 0 {
		return LoreHint{}, false
	}
	if hint, ok := c.lore[norm]; ok {
		return hint, true
	}

	var (
		best      LoreHint
		bestScore float64
		found     bool
	)
	for key, hint := range c.lore {
		score := matchr.JaroWinkler(norm, key, false)
		if score >= fuzzyLoreThreshold && score > bestScore {
			best, bestScore, found = hint, score, true
		}
	}
	return best, found
}
