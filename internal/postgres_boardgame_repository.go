package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lychee-technology/scorekeep"
	"go.uber.org/zap"
)

const pgUniqueViolation = "23505"

const boardgameColumns = "id, type, name, short_name, aliases, thumbnail, url, rulebook, min_players, max_players, results_schema, metadata_schema, created_at"

type boardgamePool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresBoardgameRepository stores boardgames in a single table. Aliases
// are kept as one comma-joined text column and schemas as JSON text.
type PostgresBoardgameRepository struct {
	pool  boardgamePool
	table string
}

func NewPostgresBoardgameRepository(pool boardgamePool, table string) *PostgresBoardgameRepository {
	return &PostgresBoardgameRepository{
		pool:  pool,
		table: sanitizeIdentifier(table),
	}
}

// BoardgamesTableDDL returns the statement creating the boardgame table.
func BoardgamesTableDDL(table string) string {
	name := sanitizeIdentifier(table)
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	type TEXT NOT NULL,
	name TEXT NOT NULL,
	short_name TEXT NOT NULL UNIQUE,
	aliases TEXT NOT NULL DEFAULT '',
	thumbnail TEXT NOT NULL,
	url TEXT,
	rulebook TEXT,
	min_players INTEGER NOT NULL,
	max_players INTEGER NOT NULL,
	results_schema TEXT NOT NULL,
	metadata_schema TEXT,
	created_at TIMESTAMPTZ NOT NULL
)`, name)
}

func (r *PostgresBoardgameRepository) Create(ctx context.Context, game *scorekeep.Boardgame) error {
	if game == nil {
		return fmt.Errorf("boardgame cannot be nil")
	}

	resultsSchema, err := json.Marshal(game.ResultsSchema)
	if err != nil {
		return fmt.Errorf("failed to marshal results schema: %w", err)
	}

	var metadataSchema *string
	if game.MetadataSchema != nil {
		raw, err := json.Marshal(game.MetadataSchema)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata schema: %w", err)
		}
		s := string(raw)
		metadataSchema = &s
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.table, boardgameColumns,
	)
	_, err = r.pool.Exec(ctx, query,
		game.ID,
		string(game.Type),
		game.Name,
		game.ShortName,
		scorekeep.JoinAliases(game.Aliases),
		game.Thumbnail,
		game.URL,
		game.Rulebook,
		int64(game.MinPlayers),
		int64(game.MaxPlayers),
		string(resultsSchema),
		metadataSchema,
		game.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return scorekeep.NewAlreadyExistsError("boardgame", "shortName", game.ShortName)
		}
		return fmt.Errorf("failed to insert boardgame: %w", err)
	}

	zap.S().Debugw("inserted boardgame", "table", r.table, "id", game.ID)
	return nil
}

func (r *PostgresBoardgameRepository) GetByID(ctx context.Context, id uuid.UUID) (*scorekeep.Boardgame, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, boardgameColumns, r.table)

	var (
		rawID          string
		gameType       string
		aliases        string
		url            pgtype.Text
		rulebook       pgtype.Text
		minPlayers     int32
		maxPlayers     int32
		resultsSchema  string
		metadataSchema pgtype.Text
		createdAt      time.Time
		game           scorekeep.Boardgame
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rawID,
		&gameType,
		&game.Name,
		&game.ShortName,
		&aliases,
		&game.Thumbnail,
		&url,
		&rulebook,
		&minPlayers,
		&maxPlayers,
		&resultsSchema,
		&metadataSchema,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, scorekeep.NewNotFoundError("boardgame", id.String())
		}
		return nil, fmt.Errorf("failed to query boardgame %s: %w", id, err)
	}

	game.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid boardgame id %q: %w", rawID, err)
	}
	game.Type = scorekeep.GameType(gameType)
	game.Aliases = scorekeep.SplitAliases(aliases)
	game.URL = textPtr(url)
	game.Rulebook = textPtr(rulebook)
	game.MinPlayers = uint32(minPlayers)
	game.MaxPlayers = uint32(maxPlayers)
	game.CreatedAt = createdAt

	if err := json.Unmarshal([]byte(resultsSchema), &game.ResultsSchema); err != nil {
		return nil, fmt.Errorf("failed to decode results schema of boardgame %s: %w", id, err)
	}
	if metadataSchema.Valid {
		var schema scorekeep.PropertySchema
		if err := json.Unmarshal([]byte(metadataSchema.String), &schema); err != nil {
			return nil, fmt.Errorf("failed to decode metadata schema of boardgame %s: %w", id, err)
		}
		game.MetadataSchema = &schema
	}

	return &game, nil
}

func (r *PostgresBoardgameRepository) ShortNameExists(ctx context.Context, shortName string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE short_name = $1)`, r.table)
	var exists bool
	if err := r.pool.QueryRow(ctx, query, strings.ToLower(shortName)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check short name %q: %w", shortName, err)
	}
	return exists, nil
}

// ListNames loads the searchable names of every game in registration order.
func (r *PostgresBoardgameRepository) ListNames(ctx context.Context) ([]scorekeep.BoardgameNames, error) {
	query := fmt.Sprintf(`SELECT id, name, short_name, aliases FROM %s ORDER BY created_at, id`, r.table)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list boardgame names: %w", err)
	}
	defer rows.Close()

	names := make([]scorekeep.BoardgameNames, 0)
	for rows.Next() {
		var (
			rawID   string
			aliases string
			entry   scorekeep.BoardgameNames
		)
		if err := rows.Scan(&rawID, &entry.Name, &entry.ShortName, &aliases); err != nil {
			return nil, fmt.Errorf("failed to scan boardgame names: %w", err)
		}
		entry.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("invalid boardgame id %q: %w", rawID, err)
		}
		entry.Aliases = scorekeep.SplitAliases(aliases)
		names = append(names, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate boardgame names: %w", err)
	}
	return names, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
