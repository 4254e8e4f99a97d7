package tts

import (
	"errors"
	"fmt"

	"github.com/MrWong99/vocifer/pkg/types"
)

// Voice describes one entry in a provider's voice catalogue.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Gender is the catalogue-reported voice gender, when the vendor
	// exposes one. GenderUnknown otherwise.
	Gender types.Gender

	// Labels holds provider-specific voice attributes (age, accent,
	// use case, etc.).
	Labels map[string]string
}

// VendorError is a typed failure reported by the synthesis vendor, as
// opposed to a transport or local error.
type VendorError struct {
	// Provider names the vendor that produced the error.
	Provider string

	// StatusCode is the vendor's HTTP-style status code.
	StatusCode int

	// Message is the vendor-supplied error description.
	Message string
}

// Error implements the error interface.
func (e *VendorError) Error() string {
	return fmt.Sprintf("%s: vendor error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Recoverable reports whether retrying the request once with a safe fallback
// voice is worthwhile. 400-class responses usually mean the requested voice
// or style was rejected; a different voice can still succeed. 500-class and
// transport errors are not helped by changing the voice.
func (e *VendorError) Recoverable() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsRecoverable reports whether err is a [*VendorError] for which a single
// retry with a fallback voice is worthwhile.
func IsRecoverable(err error) bool {
	var ve *VendorError
	return errors.As(err, &ve) && ve.Recoverable()
}
