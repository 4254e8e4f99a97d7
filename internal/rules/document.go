package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrWong99/vocifer/internal/classify"
)

// RegexEntry is one ordered (pattern, rule) pair from a document's
// "npcRegex" object. Order matters: the first pattern that matches wins.
type RegexEntry struct {
	Pattern string
	Rule    Rule
}

// Document is one parsed rule document. Exact-name keys are normalized with
// [classify.NormalizeName] at parse time; values are parsed into [Rule]s.
type Document struct {
	// Origin describes where the document came from, for log messages.
	Origin string

	// Exact maps normalized display names to rules.
	Exact map[string]Rule

	// Regex holds ordered (pattern, rule) pairs.
	Regex []RegexEntry

	// Tags maps tag names (including provider-suffixed variants such as
	// "royalty-eleven") to rules.
	Tags map[string]Rule
}

// rawDocument mirrors the on-disk JSON shape, except npcRegex which is
// decoded separately to preserve key order.
type rawDocument struct {
	NPCExact map[string]string `json:"npcExact"`
	NPCRegex json.RawMessage   `json:"npcRegex"`
	Tags     map[string]string `json:"tags"`
}

// ParseDocument decodes one rule document from r. Malformed individual
// entries are skipped (configuration errors must never abort loading); a
// malformed document as a whole returns an error.
func ParseDocument(origin string, r io.Reader) (Document, error) {
	var raw rawDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return Document{}, fmt.Errorf("rules: parse %s: %w", origin, err)
	}

	doc := Document{
		Origin: origin,
		Exact:  make(map[string]Rule, len(raw.NPCExact)),
		Tags:   make(map[string]Rule, len(raw.Tags)),
	}

	for name, value := range raw.NPCExact {
		rule := ParseRule(value)
		if rule.IsZero() {
			continue
		}
		if norm := classify.NormalizeName(name); norm != "" {
			doc.Exact[norm] = rule
		}
	}

	for tag, value := range raw.Tags {
		rule := ParseRule(value)
		if rule.IsZero() || tag == "" {
			continue
		}
		doc.Tags[tag] = rule
	}

	if len(raw.NPCRegex) > 0 {
		entries, err := parseOrderedRegex(raw.NPCRegex)
		if err != nil {
			return Document{}, fmt.Errorf("rules: parse %s: npcRegex: %w", origin, err)
		}
		doc.Regex = entries
	}
	return doc, nil
}

// parseOrderedRegex decodes a JSON object of pattern → rule pairs while
// preserving the order the keys appear in the file. encoding/json map
// decoding would lose that order, and regex rules are first-match-wins.
func parseOrderedRegex(raw json.RawMessage) ([]RegexEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var entries []RegexEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		pattern, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		rule := ParseRule(value)
		if rule.IsZero() || pattern == "" {
			continue
		}
		entries = append(entries, RegexEntry{Pattern: pattern, Rule: rule})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}
