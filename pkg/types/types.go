// Package types defines the shared types used across all Vocifer packages.
//
// These types form the lingua franca between the classifier, rule resolver,
// rotation pools, assignment stores, and the selection pipeline. They are
// intentionally minimal (each package defines its own domain types), but
// cross-cutting data structures live here to avoid circular imports.
package types

import (
	"time"
)

// Identity names a speaking game character as reported by the host client.
// Either the numeric in-game ID or the display name (or both) may be present.
type Identity struct {
	// NumericID is the host client's numeric entity ID. Zero or negative
	// means "not available", common for narrator and ambient text.
	NumericID int64

	// DisplayName is the raw display name as shown in the game UI.
	// May contain decorative punctuation, curly quotes, and mixed case.
	DisplayName string
}

// Gender is the inferred gender of a speaking identity, used to keep the
// assigned voice consistent with how the character is presented in-game.
type Gender string

const (
	// GenderMale marks an identity inferred to be male.
	GenderMale Gender = "male"

	// GenderFemale marks an identity inferred to be female.
	GenderFemale Gender = "female"

	// GenderUnknown is the default when no heuristic matches.
	GenderUnknown Gender = "unknown"
)

// IsValid reports whether g is a recognised gender value.
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderUnknown:
		return true
	}
	return false
}

// Opposes reports whether g and other are both known and different.
// Unknown never opposes anything.
func (g Gender) Opposes(other Gender) bool {
	if g == GenderUnknown || other == GenderUnknown {
		return false
	}
	return g != other
}

// Metadata is the ephemeral classification result for an identity.
// It is always recomputed from the display name and never persisted.
type Metadata struct {
	// Gender is the inferred gender.
	Gender Gender

	// Tags is the set of descriptive labels (creature type, social role,
	// region/faction) inferred from the display name. Never nil.
	Tags map[string]struct{}
}

// HasTag reports whether tag is present in the metadata tag set.
func (m Metadata) HasTag(tag string) bool {
	_, ok := m.Tags[tag]
	return ok
}

// TagList returns the tags as a slice in unspecified order.
func (m Metadata) TagList() []string {
	out := make([]string, 0, len(m.Tags))
	for t := range m.Tags {
		out = append(out, t)
	}
	return out
}

// AssignedBy records which actor created a voice assignment.
type AssignedBy string

const (
	// AssignedAuto marks assignments created by the selection pipeline.
	AssignedAuto AssignedBy = "auto"

	// AssignedUser marks assignments created by an explicit user action.
	// User assignments are never overwritten automatically.
	AssignedUser AssignedBy = "user"
)

// IsValid reports whether a is a recognised assignment origin.
func (a AssignedBy) IsValid() bool {
	return a == AssignedAuto || a == AssignedUser
}

// VoiceAssignment is the durable record binding an identity key to a voice.
// It is the single source of truth for "has this identity already been voiced".
type VoiceAssignment struct {
	// Provider names the TTS provider this voice belongs to.
	Provider string `json:"provider"`

	// VoiceID is the provider-specific voice identifier.
	VoiceID string `json:"voiceId"`

	// VoiceLabel is the human-readable voice name, for display and logs.
	VoiceLabel string `json:"voiceLabel,omitempty"`

	// AssignedAtEpochMs is the assignment creation time in Unix milliseconds.
	AssignedAtEpochMs int64 `json:"assignedAt"`

	// AssignedBy records whether the pipeline or the user made this binding.
	AssignedBy AssignedBy `json:"assignedBy"`

	// PrimaryTag is the tag that drove the selection, when one did.
	PrimaryTag string `json:"primaryTag,omitempty"`
}

// AssignedAt returns the assignment creation time.
func (a VoiceAssignment) AssignedAt() time.Time {
	return time.UnixMilli(a.AssignedAtEpochMs)
}

// IsUser reports whether this assignment was made by an explicit user action.
func (a VoiceAssignment) IsUser() bool {
	return a.AssignedBy == AssignedUser
}

// VoiceSelection is the ephemeral output of one selection decision.
// It is handed to the synthesizer and is not persisted directly, the
// [VoiceAssignment] is the durable record; a selection is rebuilt from it on
// every subsequent call for the same identity.
type VoiceSelection struct {
	// VoiceName is the provider-specific voice identifier to synthesize with.
	VoiceName string

	// Style is an optional speaking style directive (provider-specific).
	Style string

	// Rate is an optional speaking-rate multiplier. Zero means "default".
	Rate float64

	// Pitch is an optional pitch adjustment. Zero means "default".
	Pitch float64
}

// NewTagSet builds a tag set from the given tags, dropping empty strings.
func NewTagSet(tags ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}
