// Package engine ties voice selection and synthesis caching together behind a
// single Speak entry point.
//
// The engine does not talk to the host game client. Bulk operations take a
// collaborator-supplied identity iterator instead of scanning live game
// state, so the host integration stays outside this module.
package engine

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/vocifer/internal/classify"
	"github.com/MrWong99/vocifer/internal/observe"
	"github.com/MrWong99/vocifer/internal/pipeline"
	"github.com/MrWong99/vocifer/internal/rules"
	"github.com/MrWong99/vocifer/internal/synthcache"
	"github.com/MrWong99/vocifer/pkg/provider/tts"
	"github.com/MrWong99/vocifer/pkg/types"
)

// defaultPreassignWorkers bounds bulk re-voice concurrency when the caller
// passes zero.
const defaultPreassignWorkers = 4

// Utterance is the result of a [Engine.Speak] call.
type Utterance struct {
	// Audio is the synthesized (or cached) audio payload.
	Audio []byte

	// Selection is the voice the pipeline chose for the speaker.
	Selection types.VoiceSelection

	// CacheKey is the content address the audio is stored under.
	CacheKey string

	// Cached reports whether the audio was served from the cache without a
	// vendor call.
	Cached bool
}

// Option configures an [Engine].
type Option func(*Engine)

// WithCacheVersion sets the cache-version component of content addresses.
// Bumping it invalidates all previously cached audio at once.
func WithCacheVersion(v string) Option {
	return func(e *Engine) { e.cacheVersion = v }
}

// WithMetrics attaches a metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithFallbackVoice overrides the voice used for the single retry after a
// recoverable vendor rejection. Empty keeps the provider's built-in
// placeholder.
func WithFallbackVoice(voice string) Option {
	return func(e *Engine) { e.fallbackVoice = voice }
}

// Engine combines the selection pipeline, the synthesis cache, and a vendor
// synthesizer. Safe for concurrent use.
type Engine struct {
	pipe          *pipeline.Pipeline
	cache         *synthcache.Cache
	synth         tts.Synthesizer
	cacheVersion  string
	fallbackVoice string
	metrics       *observe.Metrics
}

// New creates an engine. The synthesizer must belong to the same provider the
// pipeline selects voices for.
func New(pipe *pipeline.Pipeline, cache *synthcache.Cache, synth tts.Synthesizer, opts ...Option) *Engine {
	e := &Engine{
		pipe:         pipe,
		cache:        cache,
		synth:        synth,
		cacheVersion: "1",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Speak selects a voice for the identity and returns audio for text, serving
// repeated utterances from the cache. Concurrent calls for the same
// (identity, text) share one synthesis.
//
// A recoverable vendor rejection (4xx) is retried once with the provider's
// placeholder voice before the error is returned. The retry is cached under
// its own content address, so the entry's voice component stays truthful and
// the originally selected voice is tried again on the next call.
func (e *Engine) Speak(ctx context.Context, identity types.Identity, text string, extraTags ...string) (Utterance, error) {
	ctx, span := observe.StartSpan(ctx, "engine.Speak",
		trace.WithAttributes(attribute.String("identity", identity.DisplayName)),
	)
	defer span.End()

	sel := e.pipe.SelectVoice(ctx, identity, text, extraTags...)
	identityKey := classify.IdentityKey(identity)
	key := synthcache.Key(e.pipe.Provider(), sel.VoiceName, identityKey, text, e.cacheVersion)

	if audio, err := e.cache.Get(key); err == nil {
		e.count(ctx, func(m *observe.Metrics) metric.Int64Counter { return m.CacheHits })
		return Utterance{Audio: audio, Selection: sel, CacheKey: key, Cached: true}, nil
	}
	e.count(ctx, func(m *observe.Metrics) metric.Int64Counter { return m.CacheMisses })

	audio, err := e.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		return e.synthesize(ctx, text, sel)
	})
	if err == nil {
		return Utterance{Audio: audio, Selection: sel, CacheKey: key}, nil
	}
	if !tts.IsRecoverable(err) {
		return Utterance{}, fmt.Errorf("engine: speak %q: %w", identity.DisplayName, err)
	}

	fallback := e.fallbackSelection()
	if fallback.VoiceName == "" || fallback.VoiceName == sel.VoiceName {
		return Utterance{}, fmt.Errorf("engine: speak %q: %w", identity.DisplayName, err)
	}
	observe.Logger(ctx).Warn("vendor rejected voice, retrying with placeholder",
		"voice", sel.VoiceName, "fallback", fallback.VoiceName, "error", err)

	fallbackKey := synthcache.Key(e.pipe.Provider(), fallback.VoiceName, identityKey, text, e.cacheVersion)
	audio, retryErr := e.cache.GetOrCompute(ctx, fallbackKey, func(ctx context.Context) ([]byte, error) {
		return e.synthesize(ctx, text, fallback)
	})
	if retryErr != nil {
		return Utterance{}, fmt.Errorf("engine: speak %q: %w", identity.DisplayName, retryErr)
	}
	return Utterance{Audio: audio, Selection: fallback, CacheKey: fallbackKey}, nil
}

// synthesize calls the vendor once, recording duration and error metrics.
func (e *Engine) synthesize(ctx context.Context, text string, sel types.VoiceSelection) ([]byte, error) {
	start := time.Now()
	audio, err := e.synth.Synthesize(ctx, text, sel)
	if e.metrics != nil {
		e.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("provider", e.pipe.Provider())))
		if err != nil {
			e.metrics.RecordSynthesisError(ctx, e.pipe.Provider(), tts.IsRecoverable(err))
		}
	}
	return audio, err
}

// fallbackSelection returns the configured retry voice, falling back to the
// provider's built-in placeholder.
func (e *Engine) fallbackSelection() types.VoiceSelection {
	if e.fallbackVoice != "" {
		return types.VoiceSelection{VoiceName: e.fallbackVoice}
	}
	return types.VoiceSelection{VoiceName: rules.PlaceholderVoice(e.pipe.Provider())}
}

// AssignUserVoice records a manual voice choice. See
// [pipeline.Pipeline.AssignUserVoice].
func (e *Engine) AssignUserVoice(ctx context.Context, identityKey, voiceID, voiceLabel string) error {
	return e.pipe.AssignUserVoice(ctx, identityKey, voiceID, voiceLabel)
}

// ClearAssignment removes a persisted assignment. See
// [pipeline.Pipeline.ClearAssignment].
func (e *Engine) ClearAssignment(ctx context.Context, identityKey string) error {
	return e.pipe.ClearAssignment(ctx, identityKey)
}

// ClearCached removes a cached utterance by key.
func (e *Engine) ClearCached(key string) error {
	return e.cache.Clear(key)
}

// PreassignVoices walks a collaborator-supplied identity sequence and runs
// voice selection for each, persisting assignments ahead of any speech. Up to
// workers selections run concurrently (a small default applies when workers
// is zero or negative). Stops early when ctx is cancelled.
func (e *Engine) PreassignVoices(ctx context.Context, identities iter.Seq[types.Identity], workers int) error {
	if workers <= 0 {
		workers = defaultPreassignWorkers
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for identity := range identities {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.pipe.SelectVoice(ctx, identity, "")
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) count(ctx context.Context, pick func(*observe.Metrics) metric.Int64Counter) {
	if e.metrics == nil {
		return
	}
	pick(e.metrics).Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", e.pipe.Provider())))
}
