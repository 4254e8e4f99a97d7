package rules

import (
	"hash/fnv"

	"github.com/MrWong99/vocifer/pkg/types"
)

// Provider names understood by the built-in tables. Additional providers can
// be served through rule files without any built-in support.
const (
	// ProviderEleven is the ElevenLabs provider (dynamic catalogue).
	ProviderEleven = "eleven"

	// ProviderPiper is the local Piper provider (static catalogue).
	ProviderPiper = "piper"
)

// builtinTagDefaults is the fixed per-provider tag default table shipped
// with the engine. It covers common fantasy archetypes and regions so a
// zero-configuration install still produces sensible voices.
var builtinTagDefaults = map[string]map[string]Rule{
	ProviderEleven: {
		"goblin":   {Voice: "Clyde"},
		"dwarf":    {Voice: "Arnold"},
		"elf":      {Voice: "Charlotte"},
		"gnome":    {Voice: "Antoni"},
		"orc":      {Voice: "Clyde", Style: "harsh"},
		"troll":    {Voice: "Arnold", Style: "slow"},
		"giant":    {Voice: "Arnold", Style: "slow"},
		"undead":   {Voice: "Callum", Style: "whisper"},
		"demon":    {Voice: "Callum"},
		"fairy":    {Voice: "Elli"},
		"pirate":   {Voice: "Charlie"},
		"guard":    {Voice: "Josh"},
		"knight":   {Voice: "Daniel"},
		"wizard":   {Voice: "George"},
		"druid":    {Voice: "Brian"},
		"monk":     {Voice: "Brian"},
		"priest":   {Voice: "Daniel"},
		"royalty":  {Voice: "George", Style: "formal"},
		"noble":    {Voice: "Daniel", Style: "formal"},
		"merchant": {Voice: "Charlie"},
		"commoner": {Voice: "Bill"},
		"sailor":   {Voice: "Charlie"},
		"kid":      {Voice: "Elli"},
		"desert":   {Voice: "Antoni"},
		"tribal":   {Voice: "Clyde"},
		"north":    {Voice: "Arnold"},
		"bandit":   {Voice: "Charlie", Style: "sly"},
		"cult":     {Voice: "Callum", Style: "whisper"},
		"narrator": {Voice: "Bill", Style: "calm"},
	},
	ProviderPiper: {
		"goblin":   {Voice: "en_US-joe-medium"},
		"dwarf":    {Voice: "en_GB-alan-medium"},
		"elf":      {Voice: "en_GB-alba-medium"},
		"undead":   {Voice: "en_US-john-medium"},
		"guard":    {Voice: "en_US-ryan-high"},
		"knight":   {Voice: "en_US-ryan-high"},
		"wizard":   {Voice: "en_GB-alan-medium"},
		"royalty":  {Voice: "en_GB-northern_english_male-medium"},
		"noble":    {Voice: "en_GB-alba-medium"},
		"merchant": {Voice: "en_US-joe-medium"},
		"kid":      {Voice: "en_US-kathleen-low"},
		"narrator": {Voice: "en_US-lessac-medium"},
	},
}

// categoryPools holds the gendered/kid fallback pools for providers with a
// static catalogue. Picks are deterministic per identity: index =
// hash(name) mod pool length.
var categoryPools = map[string]map[types.Gender][]string{
	ProviderPiper: {
		types.GenderMale: {
			"en_US-ryan-high",
			"en_US-joe-medium",
			"en_US-john-medium",
			"en_GB-alan-medium",
			"en_GB-northern_english_male-medium",
		},
		types.GenderFemale: {
			"en_US-amy-medium",
			"en_US-kathleen-low",
			"en_US-lessac-medium",
			"en_GB-alba-medium",
			"en_GB-jenny_dioco-medium",
		},
		types.GenderUnknown: {
			"en_US-ryan-high",
			"en_US-amy-medium",
			"en_US-joe-medium",
			"en_US-lessac-medium",
			"en_GB-alan-medium",
			"en_GB-alba-medium",
		},
	},
	ProviderEleven: {
		types.GenderMale: {
			"Adam", "Antoni", "Josh", "Arnold", "Clyde", "Charlie", "Daniel", "George",
		},
		types.GenderFemale: {
			"Rachel", "Domi", "Bella", "Elli", "Dorothy", "Charlotte", "Matilda", "Alice",
		},
		types.GenderUnknown: {
			"Adam", "Rachel", "Antoni", "Domi", "Josh", "Bella", "Arnold", "Elli",
		},
	},
}

// kidPools holds the child-voice pools consulted when an identity carries
// the "kid" tag, regardless of apparent name gender.
var kidPools = map[string][]string{
	ProviderEleven: {"Elli", "Dorothy", "Bella"},
	ProviderPiper:  {"en_US-kathleen-low", "en_GB-jenny_dioco-medium"},
}

// defaultPlaceholders are the two last-resort voices per provider. The
// pipeline deliberately does not persist an assignment that landed on one of
// these, so a later better-informed call can still improve on it.
var defaultPlaceholders = map[string][2]string{
	ProviderEleven: {"Adam", "Rachel"},
	ProviderPiper:  {"en_US-ryan-medium", "en_US-amy-medium"},
}

// BuiltinTagDefault returns the engine's built-in rule for (provider, tag).
func BuiltinTagDefault(provider, tag string) (Rule, bool) {
	rule, ok := builtinTagDefaults[provider][tag]
	return rule, ok
}

// CategoryPool returns the fallback pool for (provider, gender). The unknown
// pool mixes genders. Returns nil when the provider has no built-in pools.
func CategoryPool(provider string, gender types.Gender) []string {
	pools, ok := categoryPools[provider]
	if !ok {
		return nil
	}
	if pool := pools[gender]; len(pool) > 0 {
		return pool
	}
	return pools[types.GenderUnknown]
}

// KidPool returns the provider's child-voice pool, or nil when it has none.
func KidPool(provider string) []string {
	return kidPools[provider]
}

// IsDefaultPlaceholder reports whether voice is one of the provider's two
// designated last-resort placeholder voices.
func IsDefaultPlaceholder(provider, voice string) bool {
	pair, ok := defaultPlaceholders[provider]
	if !ok {
		return false
	}
	return voice == pair[0] || voice == pair[1]
}

// PlaceholderVoice returns the provider's first designated placeholder
// voice, the safe choice for retry-after-vendor-rejection.
func PlaceholderVoice(provider string) string {
	return defaultPlaceholders[provider][0]
}

// PlaceholderFor returns the placeholder voice matching the given gender:
// the second of the pair for female identities, the first otherwise.
func PlaceholderFor(provider string, gender types.Gender) string {
	pair := defaultPlaceholders[provider]
	if gender == types.GenderFemale {
		return pair[1]
	}
	return pair[0]
}

// PoolIndex derives the deterministic category-pool index for a name:
// a 32-bit FNV-1a hash of the key modulo the pool length.
func PoolIndex(key string, poolLen int) int {
	if poolLen <= 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(poolLen))
}
