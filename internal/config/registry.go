package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/vocifer/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by [Registry.Create] when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// SynthesizerFactory builds a [tts.Synthesizer] from the configuration.
type SynthesizerFactory func(cfg *Config) (tts.Synthesizer, error)

// Registry maps provider names to synthesizer factories. The binary registers
// the vendors it links at startup, keeping the config package free of vendor
// imports. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]SynthesizerFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]SynthesizerFactory)}
}

// Register adds a factory under name, replacing any previous registration.
func (r *Registry) Register(name string, factory SynthesizerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Create builds a synthesizer for the provider selected in cfg.
func (r *Registry) Create(cfg *Config) (tts.Synthesizer, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Provider.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, cfg.Provider.Name)
	}
	return factory(cfg)
}
