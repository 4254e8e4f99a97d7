package assign

import (
	"context"
	"sync"

	"github.com/MrWong99/vocifer/pkg/types"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. It is used
// in tests and as the degraded fallback when the backing file cannot be
// created.
type MemStore struct {
	mu          sync.RWMutex
	assignments map[string]types.VoiceAssignment
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		assignments: make(map[string]types.VoiceAssignment),
	}
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, key string) (types.VoiceAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[key]
	if !ok {
		return types.VoiceAssignment{}, ErrNotFound
	}
	return a, nil
}

// Put implements [Store.Put].
func (s *MemStore) Put(ctx context.Context, key string, a types.VoiceAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.assignments == nil {
		s.assignments = make(map[string]types.VoiceAssignment)
	}
	s.assignments[key] = a
	return nil
}

// Remove implements [Store.Remove].
func (s *MemStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[key]; !ok {
		return ErrNotFound
	}
	delete(s.assignments, key)
	return nil
}

// All implements [Store.All].
func (s *MemStore) All(ctx context.Context) (map[string]types.VoiceAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]types.VoiceAssignment, len(s.assignments))
	for k, v := range s.assignments {
		out[k] = v
	}
	return out, nil
}
