// Package tts defines the Synthesizer interface for Text-to-Speech backends.
//
// A synthesizer wraps a speech-synthesis vendor (e.g., ElevenLabs, or a local
// Piper instance) and presents a uniform request/response interface: one
// utterance in, one opaque audio blob out. Vocifer treats the blob as bytes
// to cache, decoding and playback belong to the host client.
//
// Implementations must be safe for concurrent use: the selection pipeline may
// synthesize several utterances in parallel.
package tts

import (
	"context"

	"github.com/MrWong99/vocifer/pkg/types"
)

// Synthesizer is the abstraction over any TTS vendor.
//
// Implementations must be safe for concurrent use.
type Synthesizer interface {
	// Synthesize renders text with the given voice selection and returns the
	// encoded audio bytes. The call may be slow, it typically crosses the
	// network. Callers that time out must stop awaiting the result rather
	// than assume the vendor call was cancelled.
	//
	// Vendor-reported failures should be returned as a [*VendorError] so
	// callers can distinguish recoverable request errors (bad voice ID,
	// unsupported style) from transport failures.
	Synthesize(ctx context.Context, text string, selection types.VoiceSelection) ([]byte, error)

	// ListVoices returns the vendor's current voice catalogue. For vendors
	// with dynamic catalogues the result may change between calls; callers
	// that build rotation pools should snapshot the result.
	ListVoices(ctx context.Context) ([]Voice, error)
}

// CatalogKind describes how a provider's voice catalogue behaves, which
// decides whether rotation pools or static category pools serve fallback
// picks for it.
type CatalogKind int

const (
	// CatalogStatic marks providers whose voice list is fixed at build time.
	// Fallback picks use the built-in category pools.
	CatalogStatic CatalogKind = iota

	// CatalogDynamic marks providers whose voice list is fetched from the
	// vendor at runtime. Fallback picks use tag rotation pools.
	CatalogDynamic
)
