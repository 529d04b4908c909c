package e2e_harness

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/lychee-technology/scorekeep"
	"github.com/lychee-technology/scorekeep/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE2ESeedFromS3(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E harness in -short mode")
	}
	if os.Getenv("SCOREKEEP_E2E") != "1" {
		t.Skip("set SCOREKEEP_E2E=1 to run the container based tests")
	}
	ctx := context.Background()
	h := &TestHarness{}

	defer h.Close()
	require.NoError(t, h.Start(ctx))

	require.NoError(t, SeedTable(ctx, h.PGDB, "boardgames"))

	cfg := h.S3SeedConfig()
	require.NoError(t, UploadSeedDocument(ctx, cfg, "seeds", "boardgames.json", SampleSeedDocument()))

	doc, err := internal.LoadSeedDocument(ctx, "s3://seeds/boardgames.json", cfg)
	require.NoError(t, err)
	require.Len(t, doc.Boardgames, 3)

	repo := internal.NewPostgresBoardgameRepository(h.PGPool, "boardgames")
	schemas, err := internal.NewSchemaCache(16)
	require.NoError(t, err)
	names := internal.NewNameIndexCache(repo, time.Millisecond)
	manager := internal.NewBoardgameManager(repo, schemas, names)

	report, err := internal.ImportSeed(ctx, manager, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"wingspan", "pandemic"}, report.Created)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "broken", report.Failed[0].ShortName)

	// a second import skips everything already stored
	again, err := internal.ImportSeed(ctx, manager, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"wingspan", "pandemic"}, again.Skipped)
	assert.Empty(t, again.Created)

	ids, err := manager.Search(ctx, "flügel", 0)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	game, err := manager.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Wingspan", game.Name)
	assert.Equal(t, []string{"Flügelschlag"}, game.Aliases)
	require.NotNil(t, game.URL)

	err = manager.ValidateMatch(ctx, &scorekeep.MatchSubmission{
		BoardgameID: game.ID,
		Results:     []any{map[string]any{"player": "Ana", "winner": true, "points": 91}},
	})
	assert.NoError(t, err)

	pandemic, err := manager.Search(ctx, "pandemic", 1)
	require.NoError(t, err)
	require.Len(t, pandemic, 1)
	err = manager.ValidateMatch(ctx, &scorekeep.MatchSubmission{
		BoardgameID: pandemic[0],
		Results:     []any{map[string]any{"player": "Ana", "winner": true, "points": 0}},
		Metadata:    map[string]any{"outbreaks": 9},
	})
	var mve *scorekeep.MatchValidationError
	require.ErrorAs(t, err, &mve)
	assert.NotNil(t, mve.Results)
	assert.NotNil(t, mve.Metadata)

	_, err = internal.LoadSeedDocument(ctx, "s3://seeds/missing.json", cfg)
	assert.True(t, scorekeep.IsNotFoundError(err))
}
