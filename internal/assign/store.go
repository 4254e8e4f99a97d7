// Package assign provides durable storage for identity-key → voice
// assignments. The store is the single source of truth for "has this
// identity already been voiced"; no other component reads or writes the
// backing file or table directly.
//
// Three implementations exist: [MemStore] for tests and degraded operation,
// [FileStore] backed by one flat JSON file with atomic rewrites, and
// [PostgresStore] for installations that already run a database.
//
// All implementations are safe for concurrent use.
package assign

import (
	"context"
	"errors"

	"github.com/MrWong99/vocifer/pkg/types"
)

// ErrNotFound is returned by Get and Remove when no assignment exists for
// the requested identity key.
var ErrNotFound = errors.New("assignment not found")

// Store manages persistent voice assignments keyed by identity key.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the assignment for key.
	// Returns [ErrNotFound] when no assignment exists.
	Get(ctx context.Context, key string) (types.VoiceAssignment, error)

	// Put creates or replaces the assignment for key. Callers are
	// responsible for the check-then-write discipline around user
	// assignments; Put itself overwrites unconditionally.
	Put(ctx context.Context, key string, a types.VoiceAssignment) error

	// Remove deletes the assignment for key.
	// Returns [ErrNotFound] when no assignment exists.
	Remove(ctx context.Context, key string) error

	// All returns a snapshot of every assignment. The returned map is owned
	// by the caller.
	All(ctx context.Context) (map[string]types.VoiceAssignment, error)
}
