// Package pipeline implements the voice-selection state machine: check the
// persistent assignment, classify the identity, resolve a voice through the
// rule layers, enforce the gender guardrail, then persist the outcome.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/vocifer/internal/assign"
	"github.com/MrWong99/vocifer/internal/classify"
	"github.com/MrWong99/vocifer/internal/observe"
	"github.com/MrWong99/vocifer/internal/rotation"
	"github.com/MrWong99/vocifer/internal/rules"
	"github.com/MrWong99/vocifer/pkg/types"
)

// candidate is an intermediate selection result before the guardrail and
// persistence stages.
type candidate struct {
	voiceID    string
	voiceLabel string
	style      string
	gender     types.Gender // apparent voice gender, unknown when unlisted
	primaryTag string
	fromPool   bool
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithRotation supplies rotation pools built from a dynamic provider
// catalogue. Without pools the pipeline falls back to the provider's built-in
// category pools.
func WithRotation(pools *rotation.Pools) Option {
	return func(p *Pipeline) { p.pools = pools }
}

// WithMetrics attaches a metrics instance. Without it the pipeline records
// nothing.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithPlaceholders overrides the provider's built-in last-resort placeholder
// voices. Empty strings keep the built-in for that gender. Overridden
// placeholders are excluded from persistence the same way built-ins are.
func WithPlaceholders(male, female string) Option {
	return func(p *Pipeline) {
		p.placeholderMale = male
		p.placeholderFemale = female
	}
}

// Pipeline selects and persists voices for identities. All methods are safe
// for concurrent use.
//
// The check-then-write sequence runs under a single coarse mutex. Call
// frequency is low relative to game tick rate; if volume grows this lock is
// the contention point to revisit.
type Pipeline struct {
	provider   string
	store      assign.Store
	classifier *classify.Classifier
	resolver   *rules.Resolver
	pools      *rotation.Pools
	metrics    *observe.Metrics

	placeholderMale   string
	placeholderFemale string

	mu sync.Mutex
}

// New creates a selection pipeline for one provider.
func New(provider string, store assign.Store, classifier *classify.Classifier, resolver *rules.Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider:   provider,
		store:      store,
		classifier: classifier,
		resolver:   resolver,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SelectVoice runs the full selection state machine for one speaking event
// and returns a usable [types.VoiceSelection]. It never fails: malformed
// input degrades to the provider placeholder voice, and store I/O failures
// degrade to an in-memory decision for this call.
//
// extraTags are tags the caller inferred from immediate context; they are
// unioned with the classifier's tags before resolution. contextText is
// carried for tracing only and never influences the selected voice.
func (p *Pipeline) SelectVoice(ctx context.Context, identity types.Identity, contextText string, extraTags ...string) types.VoiceSelection {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline.SelectVoice",
		trace.WithAttributes(
			attribute.String("provider", p.provider),
			attribute.String("identity", identity.DisplayName),
			attribute.Int("context_len", len(contextText)),
		),
	)
	defer span.End()
	defer func() {
		if p.metrics != nil {
			p.metrics.SelectionDuration.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(attribute.String("provider", p.provider)))
		}
	}()

	key := classify.IdentityKey(identity)

	p.mu.Lock()
	defer p.mu.Unlock()

	// Fast path: a persisted assignment is terminal. No re-classification,
	// no re-resolution.
	storeReadable := true
	if key != "" {
		a, err := p.store.Get(ctx, key)
		switch {
		case err == nil:
			return types.VoiceSelection{VoiceName: a.VoiceID}
		case !errors.Is(err, assign.ErrNotFound):
			// The key may already hold a user assignment this call cannot
			// see. The fresh pick stays in memory for this call only, so a
			// transient read failure never clobbers a durable record.
			storeReadable = false
			observe.Logger(ctx).Warn("assignment lookup failed, selecting in-memory only",
				"identity_key", key, "error", err)
		}
	}

	meta := p.classifier.Classify(identity.DisplayName)
	for _, tag := range extraTags {
		if tag != "" {
			meta.Tags[tag] = struct{}{}
		}
	}

	cand := p.resolve(identity, meta, key)
	cand = p.enforceGender(cand, meta.Gender, key)
	if storeReadable {
		p.persist(ctx, key, meta, cand)
	}

	return types.VoiceSelection{VoiceName: cand.voiceID, Style: cand.style}
}

// resolve runs the rule layers and, for dynamic providers, the rotation
// fallbacks. It always produces a candidate.
func (p *Pipeline) resolve(identity types.Identity, meta types.Metadata, key string) candidate {
	if rule, ok := p.resolver.Resolve(identity, meta, p.provider); ok {
		return candidate{
			voiceID:    rule.Voice,
			voiceLabel: rule.Voice,
			style:      rule.Style,
			gender:     VoiceGender(p.provider, rule.Voice),
			primaryTag: firstTag(meta),
		}
	}

	if p.pools != nil {
		// Per-tag rotating picks, sorted order for determinism.
		for _, tag := range sortedTags(meta) {
			if v, ok := p.pools.ForTag(tag).Next(meta.Gender); ok {
				return candidate{
					voiceID: v.ID, voiceLabel: v.Name, gender: v.Gender,
					primaryTag: tag, fromPool: true,
				}
			}
		}
		// Gender-only pool over the whole catalogue.
		if v, ok := p.pools.ForTag(string(meta.Gender)).Next(meta.Gender); ok {
			return candidate{voiceID: v.ID, voiceLabel: v.Name, gender: v.Gender, fromPool: true}
		}
	}

	// Built-in category pool, then the provider placeholder. This layer must
	// always yield a voice even with zero configuration.
	if pool := rules.CategoryPool(p.provider, meta.Gender); len(pool) > 0 {
		voice := pool[rules.PoolIndex(key, len(pool))]
		return candidate{
			voiceID: voice, voiceLabel: voice,
			gender: VoiceGender(p.provider, voice),
		}
	}
	voice := p.placeholderFor(meta.Gender)
	return candidate{voiceID: voice, voiceLabel: voice, gender: VoiceGender(p.provider, voice)}
}

// enforceGender is the final guardrail: a gender mismatch must never survive
// to persistence. Runs after tag-based randomization so a pool pick is
// corrected too.
func (p *Pipeline) enforceGender(cand candidate, gender types.Gender, key string) candidate {
	if !cand.gender.Opposes(gender) {
		return cand
	}

	if p.pools != nil {
		if v, ok := p.pools.ForTag(string(gender)).Next(gender); ok && !v.Gender.Opposes(gender) {
			return candidate{
				voiceID: v.ID, voiceLabel: v.Name, gender: v.Gender,
				primaryTag: cand.primaryTag, fromPool: true,
			}
		}
	}
	if pool := rules.CategoryPool(p.provider, gender); len(pool) > 0 {
		voice := pool[rules.PoolIndex(key, len(pool))]
		if vg := VoiceGender(p.provider, voice); !vg.Opposes(gender) {
			return candidate{
				voiceID: voice, voiceLabel: voice, gender: vg,
				primaryTag: cand.primaryTag,
			}
		}
	}
	voice := p.placeholderFor(gender)
	return candidate{voiceID: voice, voiceLabel: voice, gender: gender, primaryTag: cand.primaryTag}
}

// placeholderFor returns the configured placeholder for gender, falling back
// to the provider's built-in pair.
func (p *Pipeline) placeholderFor(gender types.Gender) string {
	if gender == types.GenderFemale && p.placeholderFemale != "" {
		return p.placeholderFemale
	}
	if gender != types.GenderFemale && p.placeholderMale != "" {
		return p.placeholderMale
	}
	return rules.PlaceholderFor(p.provider, gender)
}

// isPlaceholder reports whether voice is a last-resort placeholder, built-in
// or configured.
func (p *Pipeline) isPlaceholder(voice string) bool {
	if voice != "" && (voice == p.placeholderMale || voice == p.placeholderFemale) {
		return true
	}
	return rules.IsDefaultPlaceholder(p.provider, voice)
}

// persist writes the assignment unless the candidate is a designated
// placeholder: locking a generic identity into a low-diversity default would
// prevent a better-informed later call from improving on it.
func (p *Pipeline) persist(ctx context.Context, key string, meta types.Metadata, cand candidate) {
	if key == "" || p.isPlaceholder(cand.voiceLabel) {
		return
	}

	a := types.VoiceAssignment{
		Provider:          p.provider,
		VoiceID:           cand.voiceID,
		VoiceLabel:        cand.voiceLabel,
		AssignedAtEpochMs: time.Now().UnixMilli(),
		AssignedBy:        types.AssignedAuto,
		PrimaryTag:        cand.primaryTag,
	}
	if err := p.store.Put(ctx, key, a); err != nil {
		observe.Logger(ctx).Warn("assignment persist failed, continuing in memory",
			"identity_key", key, "error", err)
		return
	}
	if p.metrics != nil {
		p.metrics.RecordAssignment(ctx, p.provider, string(types.AssignedAuto))
	}
}

// AssignUserVoice records a manual voice choice for an identity. User
// assignments are terminal for SelectVoice and are never overwritten by
// automatic re-resolution.
func (p *Pipeline) AssignUserVoice(ctx context.Context, identityKey, voiceID, voiceLabel string) error {
	if identityKey == "" {
		return errors.New("pipeline: empty identity key")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	a := types.VoiceAssignment{
		Provider:          p.provider,
		VoiceID:           voiceID,
		VoiceLabel:        voiceLabel,
		AssignedAtEpochMs: time.Now().UnixMilli(),
		AssignedBy:        types.AssignedUser,
	}
	if err := p.store.Put(ctx, identityKey, a); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.RecordAssignment(ctx, p.provider, string(types.AssignedUser))
	}
	return nil
}

// ClearAssignment removes a persisted assignment so the next SelectVoice
// resolves afresh. Clearing an identity that has no assignment is a no-op.
func (p *Pipeline) ClearAssignment(ctx context.Context, identityKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.store.Remove(ctx, identityKey)
	if errors.Is(err, assign.ErrNotFound) {
		return nil
	}
	return err
}

// Provider returns the provider name this pipeline selects voices for.
func (p *Pipeline) Provider() string {
	return p.provider
}

func sortedTags(meta types.Metadata) []string {
	tags := meta.TagList()
	sort.Strings(tags)
	return tags
}

func firstTag(meta types.Metadata) string {
	tags := sortedTags(meta)
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}
