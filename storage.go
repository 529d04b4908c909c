package scorekeep

import (
	"context"

	"github.com/google/uuid"
)

// BoardgameRepository persists registered games.
type BoardgameRepository interface {
	Create(ctx context.Context, game *Boardgame) error
	GetByID(ctx context.Context, id uuid.UUID) (*Boardgame, error)
	ShortNameExists(ctx context.Context, shortName string) (bool, error)
	ListNames(ctx context.Context) ([]BoardgameNames, error)
}

// NameSource loads the projection the name index is rebuilt from.
type NameSource interface {
	ListNames(ctx context.Context) ([]BoardgameNames, error)
}

// BoardgameManager registers games and validates their matches
type BoardgameManager interface {
	// Register validates the request, including its results schema shape, and persists the game.
	Register(ctx context.Context, req *RegisterBoardgameRequest) (*Boardgame, error)
	Get(ctx context.Context, id uuid.UUID) (*Boardgame, error)

	// ValidateMatch checks results and metadata independently and returns a
	// *MatchValidationError when either fails.
	ValidateMatch(ctx context.Context, match *MatchSubmission) error

	Names(ctx context.Context) ([]NameIndexEntry, error)
	Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error)

	// ValidateResultsSchema runs only the results schema shape check.
	ValidateResultsSchema(candidate any) error
}
