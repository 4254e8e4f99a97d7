package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/vocifer/pkg/provider/tts"
	"github.com/MrWong99/vocifer/pkg/types"
)

// ErrAllFailed is returned when every backend in a [Failover] fails or has an
// open circuit breaker.
var ErrAllFailed = errors.New("all synthesis backends failed")

// FailoverConfig configures the per-backend circuit breaker created for each
// synthesizer in a [Failover].
type FailoverConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// backend pairs a synthesizer with its dedicated circuit breaker.
type backend struct {
	name    string
	synth   tts.Synthesizer
	breaker *CircuitBreaker
}

// Failover implements [tts.Synthesizer] over a primary and zero or more
// fallback backends. When the primary fails with an outage-class error (or
// its breaker is open), the next healthy backend is tried in registration
// order.
//
// Recoverable vendor errors are returned to the caller without failover:
// they describe the request, not the backend, and retrying the same voice
// against a different vendor would change the character's sound. Voice
// substitution on such errors belongs to the caller.
//
// The backend list is fixed after construction; Failover is then safe for
// concurrent use.
type Failover struct {
	backends []backend
	cfg      FailoverConfig
}

var _ tts.Synthesizer = (*Failover)(nil)

// NewFailover creates a [Failover] with primary as the preferred backend.
func NewFailover(primaryName string, primary tts.Synthesizer, cfg FailoverConfig) *Failover {
	f := &Failover{cfg: cfg}
	f.AddFallback(primaryName, primary)
	return f
}

// AddFallback registers an additional backend. Fallbacks are tried in the
// order they are added, after the primary.
func (f *Failover) AddFallback(name string, synth tts.Synthesizer) {
	cbCfg := f.cfg.CircuitBreaker
	cbCfg.Name = name
	if cbCfg.Ignore == nil {
		cbCfg.Ignore = tts.IsRecoverable
	}
	f.backends = append(f.backends, backend{
		name:    name,
		synth:   synth,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Synthesize renders text with the first healthy backend.
func (f *Failover) Synthesize(ctx context.Context, text string, selection types.VoiceSelection) ([]byte, error) {
	return execute(f, func(s tts.Synthesizer) ([]byte, error) {
		return s.Synthesize(ctx, text, selection)
	})
}

// ListVoices returns the voice catalogue of the first healthy backend.
func (f *Failover) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	return execute(f, func(s tts.Synthesizer) ([]tts.Voice, error) {
		return s.ListVoices(ctx)
	})
}

// execute tries fn against each backend in order until one succeeds. Open
// breakers are skipped; recoverable vendor errors end the attempt chain
// immediately. Returns [ErrAllFailed] wrapping the last error when every
// backend fails.
func execute[R any](f *Failover, fn func(tts.Synthesizer) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range f.backends {
		b := &f.backends[i]
		var result R
		err := b.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(b.synth)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		if tts.IsRecoverable(err) {
			return zero, err
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping synthesis backend (circuit open)", "backend", b.name)
		} else {
			slog.Warn("synthesis backend failed, trying next",
				"backend", b.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
