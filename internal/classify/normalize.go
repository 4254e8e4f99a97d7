package classify

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/MrWong99/vocifer/pkg/types"
)

// asciiReplacer maps typographic punctuation that game text frequently
// contains (curly quotes, en/em dashes, ellipsis) to plain ASCII so that the
// same character produces the same key regardless of which client font or
// locale rendered it.
var asciiReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
	" ", " ",
)

// NormalizeName canonicalises a raw display name: typographic punctuation is
// folded to ASCII, boundary punctuation is stripped, inner whitespace is
// collapsed to single spaces, and the result is lower-cased.
//
// Normalization is the join point between a volatile in-game identity and
// durable state, so it must be stable across sessions and client versions.
func NormalizeName(name string) string {
	s := asciiReplacer.Replace(name)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// IdentityKey derives the stable key for an identity.
//
// When a positive numeric ID is available it wins: "id:<n>". Otherwise the
// key is the normalized display name with spaces replaced by hyphens, e.g.
// "Varlo the Goblin Guard" → "varlo-the-goblin-guard". An identity with
// neither yields the empty string; callers should treat that as unkeyed.
func IdentityKey(id types.Identity) string {
	if id.NumericID > 0 {
		return fmt.Sprintf("id:%d", id.NumericID)
	}
	norm := NormalizeName(id.DisplayName)
	if norm == "" {
		return ""
	}
	return strings.ReplaceAll(norm, " ", "-")
}
