// Package synthcache is a content-addressed store of previously synthesized
// audio. Entries are addressed by a hash of the semantic synthesis inputs
// (provider, voice, identity key, normalized text, cache version), so
// identical utterances by the same voice never hit the vendor twice, even
// across process restarts.
//
// GetOrCompute collapses concurrent requests for the same key into a single
// synthesis call via x/sync singleflight: all waiters share one result,
// errors included, and the in-flight slot is cleared afterwards so a later
// call (e.g. after a cache clear) can synthesize again.
//
// The cache retains entries until explicitly cleared; regenerated audio is
// assumed byte-identical for identical inputs, so eviction buys nothing.
package synthcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"
)

// keyHexLen is the number of hex characters kept from the hash. 24 chars
// (96 bits) is plenty for deduplication while keeping filenames short.
const keyHexLen = 24

// ErrNotFound is returned by Get when no entry exists for the key.
var ErrNotFound = errors.New("cache entry not found")

// Format identifies the audio container of a cache entry, inferred from the
// file signature. It doubles as the file extension.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	FormatBin Format = "bin"
)

// SniffFormat inspects the leading bytes of audio data and returns the
// container format. Unknown signatures are stored as FormatBin.
func SniffFormat(data []byte) Format {
	switch {
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatBin
	}
}

// Key derives the content address for one synthesis request. The hash
// covers every input that changes the audible output, plus the cache
// version: bumping the version in config invalidates the whole namespace
// after rule files or mappings change meaningfully.
//
// Text is normalized (trimmed, inner whitespace collapsed) before hashing
// so incidental formatting differences do not duplicate entries.
func Key(provider, voiceID, identityKey, text, cacheVersion string) string {
	normText := strings.Join(strings.Fields(text), " ")
	payload := strings.Join([]string{provider, voiceID, identityKey, normText, cacheVersion}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:keyHexLen]
}

// Cache is a content-addressed audio cache over one root directory, which
// it exclusively owns. It is safe for concurrent use.
type Cache struct {
	root   string
	flight singleflight.Group
}

// New creates a cache rooted at dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("synthcache: create %q: %w", dir, err)
	}
	return &Cache{root: dir}, nil
}

// Get returns the cached audio for key, or [ErrNotFound].
func (c *Cache) Get(key string) ([]byte, error) {
	path, err := c.find(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("synthcache: read %q: %w", path, err)
	}
	return data, nil
}

// Put stores audio under key and returns the path of the stored file. The
// extension is inferred from the audio signature.
func (c *Cache) Put(key string, audio []byte) (string, error) {
	path := filepath.Join(c.root, key+"."+string(SniffFormat(audio)))

	tmp, err := os.CreateTemp(c.root, key+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("synthcache: write %q: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("synthcache: write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("synthcache: write %q: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("synthcache: write %q: %w", path, err)
	}
	return path, nil
}

// GetOrCompute returns the cached audio for key, synthesizing it with
// synthesize on a miss. At most one synthesis is in flight per key at any
// instant: concurrent callers for the same key share the single call's
// result, errors included. Callers that stop waiting (ctx) do not cancel
// the underlying synthesis; other waiters may still need the result.
func (c *Cache) GetOrCompute(ctx context.Context, key string, synthesize func(context.Context) ([]byte, error)) ([]byte, error) {
	if audio, err := c.Get(key); err == nil {
		return audio, nil
	}

	result := c.flight.DoChan(key, func() (any, error) {
		// Re-check inside the flight: a concurrent caller may have filled
		// the entry between our miss and the slot reservation.
		if audio, err := c.Get(key); err == nil {
			return audio, nil
		}
		audio, err := synthesize(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if _, err := c.Put(key, audio); err != nil {
			// The audio is still usable; the next request synthesizes again.
			slog.Warn("failed to persist cache entry", "key", key, "error", err)
		}
		return audio, nil
	})

	select {
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Clear removes the cache entry for key, if any. Clearing a missing entry
// is not an error.
func (c *Cache) Clear(key string) error {
	path, err := c.find(key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("synthcache: clear %q: %w", key, err)
	}
	return nil
}

// Path returns the on-disk location of the entry stored under key, or
// [ErrNotFound] when no entry exists.
func (c *Cache) Path(key string) (string, error) {
	return c.find(key)
}

// find locates the entry file for key regardless of extension.
func (c *Cache) find(key string) (string, error) {
	for _, format := range []Format{FormatWAV, FormatMP3, FormatBin} {
		path := filepath.Join(c.root, key+"."+string(format))
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("synthcache: stat %q: %w", path, err)
		}
	}
	return "", ErrNotFound
}
