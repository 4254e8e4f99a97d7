package rules

import (
	"embed"
	"io/fs"
)

//go:embed defaults/*.json
var defaultRules embed.FS

// DefaultSource returns the bundled default rule documents. They load before
// any user directory so user files override them per key.
func DefaultSource() Source {
	sub, err := fs.Sub(defaultRules, "defaults")
	if err != nil {
		panic("rules: bundled defaults missing: " + err.Error())
	}
	return FSSource{FS: sub, Label: "bundled defaults"}
}
