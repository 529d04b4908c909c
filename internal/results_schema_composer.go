package internal

import "github.com/lychee-technology/scorekeep"

// ComposeResultsArraySchema wraps a results schema into the array schema a
// whole match is validated against. The bounds are trusted; the caller has
// already checked minPlayers <= maxPlayers.
func ComposeResultsArraySchema(resultsSchema scorekeep.PropertySchema, minPlayers, maxPlayers uint32) scorekeep.PropertySchema {
	items := resultsSchema
	return scorekeep.PropertySchema{
		Type:     scorekeep.SchemaTypeArray,
		Items:    &items,
		MinItems: intRef(int(minPlayers)),
		MaxItems: intRef(int(maxPlayers)),
	}
}
