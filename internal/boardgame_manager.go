package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/scorekeep"
	"go.uber.org/zap"
)

type boardgameManager struct {
	repository scorekeep.BoardgameRepository
	schemas    *SchemaCache
	names      *NameIndexCache
	nowFunc    func() time.Time
}

// NewBoardgameManager creates a BoardgameManager. schemas may be nil, in which
// case every validation compiles its schema afresh.
func NewBoardgameManager(repository scorekeep.BoardgameRepository, schemas *SchemaCache, names *NameIndexCache) scorekeep.BoardgameManager {
	return newBoardgameManager(repository, schemas, names)
}

func newBoardgameManager(repository scorekeep.BoardgameRepository, schemas *SchemaCache, names *NameIndexCache) *boardgameManager {
	return &boardgameManager{
		repository: repository,
		schemas:    schemas,
		names:      names,
		nowFunc:    time.Now,
	}
}

func (m *boardgameManager) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	m.nowFunc = now
}

// Register checks the results schema shape, compiles both schemas, applies
// defaults, validates the record and persists it.
func (m *boardgameManager) Register(ctx context.Context, req *scorekeep.RegisterBoardgameRequest) (*scorekeep.Boardgame, error) {
	if req == nil {
		return nil, fmt.Errorf("register request cannot be nil")
	}

	if isAbsentJSON(req.ResultsSchema) {
		ve := scorekeep.NewValidationErrors(scorekeep.SchemaShapeInvalid).WithLabel(scorekeep.LabelInvalidSchema)
		ve.Add(scorekeep.ParsePath("resultsSchema"), "required", "should have required property 'resultsSchema'")
		return nil, ve
	}

	if err := ValidateIsValidResultsSchema([]byte(req.ResultsSchema)); err != nil {
		zap.S().Debugw("results schema rejected", "shortName", req.ShortName, "error", err)
		if ve, ok := scorekeep.AsValidationErrors(err); ok {
			return nil, ve.WithPathPrefix(scorekeep.Key("resultsSchema"))
		}
		return nil, err
	}

	resultsSchema, err := m.decodeAndCompile("resultsSchema", req.ResultsSchema)
	if err != nil {
		return nil, err
	}

	var metadataSchema *scorekeep.PropertySchema
	if !isAbsentJSON(req.MetadataSchema) {
		metadataSchema, err = m.decodeAndCompile("metadataSchema", req.MetadataSchema)
		if err != nil {
			return nil, err
		}
	}

	game := &scorekeep.Boardgame{
		Type:           req.Type,
		Name:           strings.TrimSpace(req.Name),
		ShortName:      strings.ToLower(strings.TrimSpace(req.ShortName)),
		Aliases:        req.Aliases,
		Thumbnail:      req.Thumbnail,
		URL:            req.URL,
		Rulebook:       req.Rulebook,
		MinPlayers:     1,
		MaxPlayers:     req.MaxPlayers,
		ResultsSchema:  *resultsSchema,
		MetadataSchema: metadataSchema,
	}
	if game.Type == "" {
		game.Type = scorekeep.GameTypeCompetitive
	}
	if req.MinPlayers != nil {
		game.MinPlayers = *req.MinPlayers
	}
	if game.Aliases == nil {
		game.Aliases = []string{}
	}

	if ve := game.Validate(); ve.HasErrors() {
		return nil, ve
	}

	exists, err := m.repository.ShortNameExists(ctx, game.ShortName)
	if err != nil {
		return nil, fmt.Errorf("failed to check short name: %w", err)
	}
	if exists {
		return nil, scorekeep.NewAlreadyExistsError("boardgame", "shortName", game.ShortName)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, scorekeep.NewInternalError("failed to generate boardgame id", err)
	}
	game.ID = id
	game.CreatedAt = m.nowFunc().UTC()

	if err := m.repository.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create boardgame: %w", err)
	}

	zap.S().Infow("boardgame registered", "id", game.ID, "shortName", game.ShortName, "minPlayers", game.MinPlayers, "maxPlayers", game.MaxPlayers)
	return game, nil
}

// decodeAndCompile parses a raw schema argument and makes sure it compiles.
// Violations are reported under the argument name.
func (m *boardgameManager) decodeAndCompile(argument string, raw json.RawMessage) (*scorekeep.PropertySchema, error) {
	var schema scorekeep.PropertySchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		ve := scorekeep.NewValidationErrors(scorekeep.SchemaCompilationError).WithLabel(scorekeep.LabelInvalidSchema)
		ve.Add(scorekeep.ParsePath(argument), "schema", err.Error())
		return nil, ve
	}

	if _, err := m.schemas.Compile(schema, CompileOptions{}); err != nil {
		if ve, ok := scorekeep.AsValidationErrors(err); ok {
			return nil, ve.WithPathPrefix(scorekeep.Key(argument)).WithLabel(scorekeep.LabelInvalidSchema)
		}
		return nil, err
	}
	return &schema, nil
}

func isAbsentJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Get retrieves a boardgame by id
func (m *boardgameManager) Get(ctx context.Context, id uuid.UUID) (*scorekeep.Boardgame, error) {
	return m.repository.GetByID(ctx, id)
}

// ValidateMatch validates the results array against the game's derived array
// schema and, when the game has one, the metadata against its metadata
// schema. Both are always checked.
func (m *boardgameManager) ValidateMatch(ctx context.Context, match *scorekeep.MatchSubmission) error {
	if match == nil {
		return fmt.Errorf("match submission cannot be nil")
	}

	game, err := m.repository.GetByID(ctx, match.BoardgameID)
	if err != nil {
		return err
	}

	resultsSchema := ComposeResultsArraySchema(game.ResultsSchema, game.MinPlayers, game.MaxPlayers)
	results, err := m.evaluate(ctx, "results", resultsSchema, match.Results, scorekeep.LabelInvalidResults)
	if err != nil {
		return err
	}

	var metadata *scorekeep.ValidationErrors
	if game.MetadataSchema != nil {
		metadata, err = m.evaluate(ctx, "metadata", *game.MetadataSchema, match.Metadata, scorekeep.LabelInvalidMetadata)
		if err != nil {
			return err
		}
	}

	if m.schemas != nil {
		hits, misses := m.schemas.Stats()
		EmitSchemaCacheStats(ctx, hits, misses)
	}

	if results == nil && metadata == nil {
		return nil
	}
	zap.S().Debugw("match rejected", "boardgameId", game.ID, "resultsValid", results == nil, "metadataValid", metadata == nil)
	return &scorekeep.MatchValidationError{Results: results, Metadata: metadata}
}

// evaluate returns the labelled violations, or an error when the stored
// schema itself cannot be compiled.
func (m *boardgameManager) evaluate(ctx context.Context, root string, schema scorekeep.PropertySchema, data any, label string) (*scorekeep.ValidationErrors, error) {
	validator, err := m.schemas.Compile(schema, CompileOptions{})
	if err != nil {
		return nil, scorekeep.NewInternalError(fmt.Sprintf("stored %s schema does not compile", root), err)
	}

	start := time.Now()
	err = validator.Evaluate(data, root)
	EmitValidationLatency(ctx, root, err == nil, time.Since(start))
	if err == nil {
		return nil, nil
	}

	ve, ok := scorekeep.AsValidationErrors(err)
	if !ok {
		return nil, err
	}
	return ve.WithLabel(label), nil
}

// Names returns the cached name index
func (m *boardgameManager) Names(ctx context.Context) ([]scorekeep.NameIndexEntry, error) {
	return m.names.GetNames(ctx)
}

// Search returns the ids of games with a name, short name or alias containing
// query, case-insensitively, in index order without duplicates. A limit of
// zero or less means no limit.
func (m *boardgameManager) Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	ids := make([]uuid.UUID, 0)
	if needle == "" {
		return ids, nil
	}

	entries, err := m.names.GetNames(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	for _, entry := range entries {
		if _, dup := seen[entry.BoardgameID]; dup {
			continue
		}
		if !strings.Contains(strings.ToLower(entry.Key), needle) {
			continue
		}
		seen[entry.BoardgameID] = struct{}{}
		ids = append(ids, entry.BoardgameID)
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

// ValidateResultsSchema runs only the results schema shape check
func (m *boardgameManager) ValidateResultsSchema(candidate any) error {
	return ValidateIsValidResultsSchema(candidate)
}
