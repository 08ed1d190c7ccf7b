// Package normalize maps stored book records of any historical shape onto models.Item.
//
// Records pass through a chain of schema steps, each a pure function from one raw shape to
// the next, and are then decoded field by field. Nothing in this package returns an error:
// fields that cannot be interpreted are dropped or defaulted.
package normalize

import (
	"bookshelf/internal/models"
)

// Raw is a loosely typed record as decoded from JSON
type Raw = map[string]any

// CurrentVersion is the schema version produced by the last migration step
const CurrentVersion = 4

type migration struct {
	to    int
	apply func(Raw) Raw
}

// chain lists the schema steps in order. A record at version v runs every step with to > v.
var chain = []migration{
	{to: 2, apply: foldReadingDates},
	{to: 3, apply: renameLegacyFields},
	{to: 4, apply: remapDeprecatedValues},
}

// Normalize runs a record of unknown shape through the full chain
func Normalize(raw Raw) models.Item {
	return NormalizeFrom(1, raw)
}

// NormalizeFrom runs the chain starting after the given schema version. Deprecated values
// are remapped at every version, since a record tagged current may still carry one.
func NormalizeFrom(version int, raw Raw) models.Item {
	return decode(remapDeprecatedValues(Migrate(version, raw)))
}

// Migrate applies every step newer than version and returns the canonical raw shape.
// The input map is never modified.
func Migrate(version int, raw Raw) Raw {
	out := clone(raw)
	for _, m := range chain {
		if m.to > version {
			out = m.apply(out)
		}
	}
	return out
}

func clone(raw Raw) Raw {
	out := make(Raw, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}
