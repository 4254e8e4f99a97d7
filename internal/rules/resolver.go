package rules

import (
	"log/slog"
	"regexp"
	"sort"
	"sync"

	"github.com/MrWong99/vocifer/internal/classify"
	"github.com/MrWong99/vocifer/pkg/types"
)

// UnmappedSink receives identities for which no rule layer produced a voice.
// Implementations must not block; reporting is best-effort operator
// visibility, never control flow.
type UnmappedSink interface {
	// ReportUnmapped is called at most once per identity key per process.
	ReportUnmapped(key, displayName string, tags []string)
}

// SlogUnmappedSink logs unmapped identities through the default slog logger.
type SlogUnmappedSink struct{}

// ReportUnmapped implements [UnmappedSink].
func (SlogUnmappedSink) ReportUnmapped(key, displayName string, tags []string) {
	slog.Info("no voice rule matched identity", "key", key, "name", displayName, "tags", tags)
}

// compiledRegex pairs a compiled pattern with its rule.
type compiledRegex struct {
	re   *regexp.Regexp
	rule Rule
}

// Option is a functional option for configuring a [Resolver].
type Option func(*Resolver)

// WithUnmappedSink replaces the default slog-backed unmapped-identity sink.
func WithUnmappedSink(sink UnmappedSink) Option {
	return func(r *Resolver) {
		r.sink = sink
	}
}

// WithDynamicProvider marks a provider as having a dynamic catalogue. The
// category-pool layer is skipped for dynamic providers; their fallbacks are
// served by tag rotation pools instead.
func WithDynamicProvider(provider string) Option {
	return func(r *Resolver) {
		r.dynamic[provider] = struct{}{}
	}
}

// Resolver resolves an identity and its tags to a candidate voice by walking
// the rule layers in priority order. It is immutable after construction and
// safe for concurrent use; the only internal mutation is the once-per-key
// unmapped-report set, which has its own lock.
type Resolver struct {
	doc     Document
	regex   []compiledRegex
	dynamic map[string]struct{}

	sink   UnmappedSink
	seenMu sync.Mutex
	seen   map[string]struct{}
}

// New builds a [Resolver] from a merged rule document. Regex patterns are
// compiled once here; entries that fail to compile are skipped with a
// warning so one bad pattern cannot take down the rest of the rule set.
func New(doc Document, opts ...Option) *Resolver {
	r := &Resolver{
		doc:     doc,
		dynamic: map[string]struct{}{ProviderEleven: {}},
		sink:    SlogUnmappedSink{},
		seen:    make(map[string]struct{}),
	}
	for _, o := range opts {
		o(r)
	}

	r.regex = make([]compiledRegex, 0, len(doc.Regex))
	for _, entry := range doc.Regex {
		re, err := regexp.Compile(entry.Pattern)
		if err != nil {
			slog.Warn("skipping invalid regex rule", "pattern", entry.Pattern, "error", err)
			continue
		}
		r.regex = append(r.regex, compiledRegex{re: re, rule: entry.Rule})
	}
	return r
}

// Resolve walks the rule layers for the given identity and returns the first
// applicable rule. The boolean result is false when no layer matched; the
// identity is then reported to the unmapped sink once per process.
//
// Resolve never fails: malformed input degrades to "no match".
func (r *Resolver) Resolve(identity types.Identity, meta types.Metadata, provider string) (Rule, bool) {
	norm := classify.NormalizeName(identity.DisplayName)

	// Layer 1: exact name match.
	if rule, ok := r.doc.Exact[norm]; ok && rule.AppliesTo(provider) {
		return rule, true
	}

	// Layer 2: regex match, first match wins.
	for _, entry := range r.regex {
		if !entry.rule.AppliesTo(provider) {
			continue
		}
		if entry.re.FindStringIndex(identity.DisplayName) != nil {
			return entry.rule, true
		}
	}

	// Tag layers iterate tags in sorted order for determinism.
	tags := meta.TagList()
	sort.Strings(tags)

	// Layer 3: tag mapping from rule files, plain tag then the
	// provider-suffixed variant ("royalty-eleven").
	for _, tag := range tags {
		if rule, ok := r.doc.Tags[tag]; ok && rule.AppliesTo(provider) {
			return rule, true
		}
		if rule, ok := r.doc.Tags[tag+"-"+provider]; ok && rule.AppliesTo(provider) {
			return rule, true
		}
	}

	// Layer 4: built-in per-provider tag defaults.
	for _, tag := range tags {
		if rule, ok := BuiltinTagDefault(provider, tag); ok {
			return rule, true
		}
	}

	// Layer 5: category pool fallback, static-catalogue providers only.
	if _, isDynamic := r.dynamic[provider]; !isDynamic {
		if meta.HasTag("kid") {
			if pool := KidPool(provider); len(pool) > 0 {
				return Rule{Voice: pool[PoolIndex(norm, len(pool))]}, true
			}
		}
		if pool := CategoryPool(provider, meta.Gender); len(pool) > 0 {
			return Rule{Voice: pool[PoolIndex(norm, len(pool))]}, true
		}
	}

	r.reportUnmapped(identity, norm, tags)
	return Rule{}, false
}

// reportUnmapped forwards the identity to the sink, at most once per key.
func (r *Resolver) reportUnmapped(identity types.Identity, norm string, tags []string) {
	key := classify.IdentityKey(identity)
	if key == "" {
		key = norm
	}

	r.seenMu.Lock()
	if _, dup := r.seen[key]; dup {
		r.seenMu.Unlock()
		return
	}
	r.seen[key] = struct{}{}
	r.seenMu.Unlock()

	r.sink.ReportUnmapped(key, identity.DisplayName, tags)
}
