package scorekeep

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// GameType distinguishes games with individual winners from team games.
type GameType string

const (
	GameTypeCompetitive   GameType = "COMPETITIVE"
	GameTypeCollaborative GameType = "COLLABORATIVE"
)

const (
	MaxNameLength      = 50
	MaxShortNameLength = 20
	MaxURLLength       = 100

	boardgameGeekHost = "boardgamegeek.com"
	escapedComma      = "{escaped_comma}"
)

// Boardgame is a registered game together with the schemas its matches are
// validated against.
type Boardgame struct {
	ID             uuid.UUID       `json:"uuid"`
	Type           GameType        `json:"type"`
	Name           string          `json:"name"`
	ShortName      string          `json:"shortName"`
	Aliases        []string        `json:"aliases"`
	Thumbnail      string          `json:"thumbnail"`
	URL            *string         `json:"url,omitempty"`
	Rulebook       *string         `json:"rulebook,omitempty"`
	MinPlayers     uint32          `json:"minPlayers"`
	MaxPlayers     uint32          `json:"maxPlayers"`
	ResultsSchema  PropertySchema  `json:"resultsSchema"`
	MetadataSchema *PropertySchema `json:"metadataSchema,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Validate checks the record fields. Schemas are checked separately.
func (b *Boardgame) Validate() *ValidationErrors {
	ve := NewValidationErrors(BoardgameInvalid)
	ve.Label = LabelInvalidGame

	switch b.Type {
	case GameTypeCompetitive, GameTypeCollaborative:
	default:
		ve.Add(ParsePath("type"), "enum", "should be equal to one of the allowed values")
	}

	if strings.TrimSpace(b.Name) == "" {
		ve.Add(ParsePath("name"), "minLength", "should NOT be shorter than 1 characters")
	} else if utf8.RuneCountInString(b.Name) > MaxNameLength {
		ve.Add(ParsePath("name"), "maxLength", "should NOT be longer than 50 characters")
	}

	switch {
	case b.ShortName == "":
		ve.Add(ParsePath("shortName"), "minLength", "should NOT be shorter than 1 characters")
	case utf8.RuneCountInString(b.ShortName) > MaxShortNameLength:
		ve.Add(ParsePath("shortName"), "maxLength", "should NOT be longer than 20 characters")
	case b.ShortName != strings.ToLower(b.ShortName):
		ve.Add(ParsePath("shortName"), "lowercase", "should be lowercase")
	}

	for i, alias := range b.Aliases {
		if strings.TrimSpace(alias) == "" {
			ve.Add(ParsePath("aliases", i), "minLength", "should NOT be shorter than 1 characters")
		}
	}

	if !isHTTPSURL(b.Thumbnail, "") {
		ve.Add(ParsePath("thumbnail"), "format", "should be an https URL")
	}

	if b.URL != nil {
		switch {
		case utf8.RuneCountInString(*b.URL) > MaxURLLength:
			ve.Add(ParsePath("url"), "maxLength", "should NOT be longer than 100 characters")
		case !isHTTPSURL(*b.URL, boardgameGeekHost):
			ve.Add(ParsePath("url"), "format", "should be an https URL on boardgamegeek.com")
		}
	}

	if b.Rulebook != nil {
		switch {
		case utf8.RuneCountInString(*b.Rulebook) > MaxURLLength:
			ve.Add(ParsePath("rulebook"), "maxLength", "should NOT be longer than 100 characters")
		case !isHTTPSURL(*b.Rulebook, ""):
			ve.Add(ParsePath("rulebook"), "format", "should be an https URL")
		}
	}

	if b.MinPlayers < 1 {
		ve.Add(ParsePath("minPlayers"), "minimum", "should be >= 1")
	}
	if b.MaxPlayers < b.MinPlayers {
		ve.Add(ParsePath("maxPlayers"), "minimum", "should be >= minPlayers")
	}

	return ve
}

func isHTTPSURL(raw, host string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return false
	}
	if host == "" {
		return true
	}
	h := u.Hostname()
	return h == host || strings.HasSuffix(h, "."+host)
}

// EscapeAliases replaces literal commas so the aliases survive a comma join.
func EscapeAliases(aliases []string) []string {
	out := make([]string, len(aliases))
	for i, a := range aliases {
		out[i] = strings.ReplaceAll(a, ",", escapedComma)
	}
	return out
}

// UnescapeAliases reverses EscapeAliases. An alias that contained the escape
// token itself comes back with a comma in its place.
func UnescapeAliases(aliases []string) []string {
	out := make([]string, len(aliases))
	for i, a := range aliases {
		out[i] = strings.ReplaceAll(a, escapedComma, ",")
	}
	return out
}

// JoinAliases encodes aliases into their persisted form.
func JoinAliases(aliases []string) string {
	return strings.Join(EscapeAliases(aliases), ",")
}

// SplitAliases decodes the persisted form produced by JoinAliases.
func SplitAliases(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return UnescapeAliases(strings.Split(joined, ","))
}

// RegisterBoardgameRequest is the registration input. Schemas stay raw until
// they pass the results schema shape check.
type RegisterBoardgameRequest struct {
	Type           GameType        `json:"type,omitempty"`
	Name           string          `json:"name"`
	ShortName      string          `json:"shortName"`
	Aliases        []string        `json:"aliases,omitempty"`
	Thumbnail      string          `json:"thumbnail"`
	URL            *string         `json:"url,omitempty"`
	Rulebook       *string         `json:"rulebook,omitempty"`
	MinPlayers     *uint32         `json:"minPlayers,omitempty"`
	MaxPlayers     uint32          `json:"maxPlayers"`
	ResultsSchema  json.RawMessage `json:"resultsSchema"`
	MetadataSchema json.RawMessage `json:"metadataSchema,omitempty"`
}

// MatchSubmission is a recorded match to validate against its game.
type MatchSubmission struct {
	BoardgameID uuid.UUID `json:"boardgameId"`
	Results     any       `json:"results"`
	Metadata    any       `json:"metadata,omitempty"`
}

// BoardgameNames is the projection the name index is built from.
type BoardgameNames struct {
	ID        uuid.UUID `json:"uuid"`
	Name      string    `json:"name"`
	ShortName string    `json:"shortName"`
	Aliases   []string  `json:"aliases"`
}

// NameIndexEntry maps a searchable name to a game.
type NameIndexEntry struct {
	Key         string
	BoardgameID uuid.UUID
}

// MarshalJSON encodes the entry as a [key, id] pair.
func (e NameIndexEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Key, e.BoardgameID.String()})
}

func (e *NameIndexEntry) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	id, err := uuid.Parse(pair[1])
	if err != nil {
		return err
	}
	*e = NameIndexEntry{Key: pair[0], BoardgameID: id}
	return nil
}
