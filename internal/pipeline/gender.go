package pipeline

import (
	"strings"

	"github.com/MrWong99/vocifer/internal/rules"
	"github.com/MrWong99/vocifer/pkg/types"
)

// Gender-name heuristics per provider. These are intentionally small fixed
// lists of well-known catalogue names; a voice absent from both lists is
// treated as gender-unknown and never triggers a correction.

var elevenMaleNames = map[string]struct{}{
	"adam": {}, "antoni": {}, "josh": {}, "arnold": {}, "clyde": {},
	"charlie": {}, "daniel": {}, "george": {}, "bill": {}, "brian": {},
	"callum": {}, "liam": {}, "thomas": {}, "patrick": {}, "harry": {},
}

var elevenFemaleNames = map[string]struct{}{
	"rachel": {}, "domi": {}, "bella": {}, "elli": {}, "dorothy": {},
	"charlotte": {}, "matilda": {}, "alice": {}, "sarah": {}, "emily": {},
	"grace": {}, "lily": {}, "freya": {}, "serena": {}, "nicole": {},
}

// Piper voice ids embed a speaker name ("en_US-amy-medium"), so substring
// markers are enough.
var piperMaleMarkers = []string{"ryan", "joe", "john", "alan", "danny", "arctic"}

var piperFemaleMarkers = []string{"amy", "alba", "kathleen", "jenny", "lessac", "kristin"}

// VoiceGender reports the apparent gender of a catalogue voice name for the
// given provider. Returns [types.GenderUnknown] when the name is not on any
// known list.
func VoiceGender(provider, voiceName string) types.Gender {
	name := strings.ToLower(strings.TrimSpace(voiceName))
	switch provider {
	case rules.ProviderEleven:
		if _, ok := elevenMaleNames[name]; ok {
			return types.GenderMale
		}
		if _, ok := elevenFemaleNames[name]; ok {
			return types.GenderFemale
		}
	case rules.ProviderPiper:
		for _, marker := range piperMaleMarkers {
			if strings.Contains(name, marker) {
				return types.GenderMale
			}
		}
		for _, marker := range piperFemaleMarkers {
			if strings.Contains(name, marker) {
				return types.GenderFemale
			}
		}
	}
	return types.GenderUnknown
}
