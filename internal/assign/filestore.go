package assign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrWong99/vocifer/pkg/types"
)

// Compile-time assertion that FileStore satisfies the Store interface.
var _ Store = (*FileStore)(nil)

// FileStore is a [Store] backed by a single flat JSON file: one object keyed
// by identity key. The whole file is rewritten on every mutation under one
// writer lock, via write-to-temp-then-atomic-rename so concurrent readers
// never observe a torn file.
//
// Mutation frequency is tied to "first time a character speaks", which is
// low relative to game tick rate, so the full-rewrite approach is fine. If
// call volume ever grows, the single writer lock is the contention point to
// revisit.
type FileStore struct {
	path string

	mu          sync.RWMutex
	assignments map[string]types.VoiceAssignment

	// degraded is set when the backing file cannot be written; the store
	// then serves from memory only for the rest of the run.
	degraded bool
}

// NewFileStore opens (or creates) the assignment file at path and loads any
// existing assignments. A missing file is not an error; it is created on
// first write. A malformed file is an error: silently discarding user
// assignments is worse than failing loudly at startup.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:        path,
		assignments: make(map[string]types.VoiceAssignment),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("assign: read %q: %w", path, err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.assignments); err != nil {
		return nil, fmt.Errorf("assign: parse %q: %w", path, err)
	}
	return s, nil
}

// Get implements [Store.Get].
func (s *FileStore) Get(ctx context.Context, key string) (types.VoiceAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[key]
	if !ok {
		return types.VoiceAssignment{}, ErrNotFound
	}
	return a, nil
}

// Put implements [Store.Put]. When the backing file cannot be written the
// error is logged and the assignment is kept in memory only; losing
// durability for one run beats crashing the speech pipeline.
func (s *FileStore) Put(ctx context.Context, key string, a types.VoiceAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assignments[key] = a
	s.persistLocked()
	return nil
}

// Remove implements [Store.Remove].
func (s *FileStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[key]; !ok {
		return ErrNotFound
	}
	delete(s.assignments, key)
	s.persistLocked()
	return nil
}

// All implements [Store.All].
func (s *FileStore) All(ctx context.Context) (map[string]types.VoiceAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]types.VoiceAssignment, len(s.assignments))
	for k, v := range s.assignments {
		out[k] = v
	}
	return out, nil
}

// persistLocked rewrites the whole file atomically. The caller must hold the
// write lock. Failures flip the store into degraded (memory-only) mode with
// a single warning; later successful writes clear it.
func (s *FileStore) persistLocked() {
	data, err := json.MarshalIndent(s.assignments, "", "  ")
	if err != nil {
		// Only reachable with unmarshalable values, which VoiceAssignment
		// cannot contain; log and keep serving from memory.
		slog.Error("failed to encode assignment file", "path", s.path, "error", err)
		return
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		if !s.degraded {
			slog.Warn("assignment file not writable; continuing in-memory only", "path", s.path, "error", err)
		}
		s.degraded = true
		return
	}
	s.degraded = false
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers see either the old or the new content,
// never a partial write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
