package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source yields zero or more rule documents from one location. Sources are
// consulted in registration order; documents from later sources override
// earlier ones per key when merged.
type Source interface {
	// Name describes the source for log messages.
	Name() string

	// Load parses and returns the source's documents. A missing location is
	// not an error; it yields zero documents.
	Load() ([]Document, error)
}

// FSSource loads every *.json file from an [fs.FS], typically an embedded
// bundle of default rules. Files are read in lexical order for determinism.
type FSSource struct {
	// FS is the filesystem to scan.
	FS fs.FS

	// Label names the source in logs (e.g., "bundled defaults").
	Label string
}

// Name implements [Source].
func (s FSSource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "fs"
}

// Load implements [Source].
func (s FSSource) Load() ([]Document, error) {
	names, err := fs.Glob(s.FS, "*.json")
	if err != nil {
		return nil, fmt.Errorf("rules: glob %s: %w", s.Name(), err)
	}
	sort.Strings(names)

	var docs []Document
	for _, name := range names {
		f, err := s.FS.Open(name)
		if err != nil {
			return nil, fmt.Errorf("rules: open %s/%s: %w", s.Name(), name, err)
		}
		doc, err := ParseDocument(s.Name()+"/"+name, f)
		f.Close()
		if err != nil {
			// A malformed file is a configuration error: skip it, keep
			// loading the rest.
			slog.Warn("skipping malformed rule file", "source", s.Name(), "file", name, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DirSource loads every *.json file from a directory on disk, typically a
// user override directory. A missing directory yields zero documents.
type DirSource struct {
	// Dir is the directory to scan.
	Dir string
}

// Name implements [Source].
func (s DirSource) Name() string {
	return s.Dir
}

// Load implements [Source].
func (s DirSource) Load() ([]Document, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rules: read dir %s: %w", s.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []Document
	for _, name := range names {
		path := filepath.Join(s.Dir, name)
		f, err := os.Open(path)
		if err != nil {
			slog.Warn("skipping unreadable rule file", "file", path, "error", err)
			continue
		}
		doc, err := ParseDocument(path, f)
		f.Close()
		if err != nil {
			slog.Warn("skipping malformed rule file", "file", path, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Merge combines documents in order into a single document. Exact and tag
// entries from later documents override earlier ones per key. Regex entries
// from later documents are prepended so they match first; the regex layer
// is first-match-wins, so "earlier in the list" is how a later source wins.
func Merge(docs []Document) Document {
	merged := Document{
		Origin: "merged",
		Exact:  make(map[string]Rule),
		Tags:   make(map[string]Rule),
	}
	for _, doc := range docs {
		for k, v := range doc.Exact {
			merged.Exact[k] = v
		}
		for k, v := range doc.Tags {
			merged.Tags[k] = v
		}
		if len(doc.Regex) > 0 {
			combined := make([]RegexEntry, 0, len(doc.Regex)+len(merged.Regex))
			combined = append(combined, doc.Regex...)
			combined = append(combined, merged.Regex...)
			merged.Regex = combined
		}
	}
	return merged
}
