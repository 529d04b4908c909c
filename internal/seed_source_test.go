package internal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lychee-technology/scorekeep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri    string
		bucket string
		key    string
		ok     bool
	}{
		{uri: "s3://seeds/boardgames.json", bucket: "seeds", key: "boardgames.json", ok: true},
		{uri: "s3://seeds/nested/dir/games.json", bucket: "seeds", key: "nested/dir/games.json", ok: true},
		{uri: "s3://seeds", ok: false},
		{uri: "s3:///games.json", ok: false},
		{uri: "s3://seeds/", ok: false},
		{uri: "./testdata/boardgames.json", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, ok := ParseS3URI(tt.uri)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestParseSeedDocument(t *testing.T) {
	doc, err := ParseSeedDocument([]byte(`{"boardgames":[{"name":"Azul","shortName":"azul","thumbnail":"https://x.test/a.png","maxPlayers":4,"resultsSchema":{"type":"object"}}]}`))
	require.NoError(t, err)
	require.Len(t, doc.Boardgames, 1)
	assert.Equal(t, "azul", doc.Boardgames[0].ShortName)
	assert.JSONEq(t, `{"type":"object"}`, string(doc.Boardgames[0].ResultsSchema))

	empty, err := ParseSeedDocument([]byte(`{"boardgames":[]}`))
	require.NoError(t, err)
	assert.Empty(t, empty.Boardgames)

	_, err = ParseSeedDocument([]byte(`{}`))
	assert.Error(t, err)

	_, err = ParseSeedDocument([]byte(`not json`))
	var se *scorekeep.ScorekeepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, scorekeep.ErrCodeSeedFailed, se.Code)
}

func TestLoadSeedDocument_File(t *testing.T) {
	doc := SeedDocument{Boardgames: []scorekeep.RegisterBoardgameRequest{*wingspanRequest()}}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "boardgames.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	loaded, err := LoadSeedDocument(context.Background(), path, scorekeep.SeedConfig{})
	require.NoError(t, err)
	require.Len(t, loaded.Boardgames, 1)
	assert.Equal(t, "Wingspan", loaded.Boardgames[0].Name)

	_, err = LoadSeedDocument(context.Background(), filepath.Join(t.TempDir(), "missing.json"), scorekeep.SeedConfig{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestImportSeed(t *testing.T) {
	m, repo := newTestManager(t)

	invalid := wingspanRequest()
	invalid.ShortName = "broken"
	invalid.ResultsSchema = json.RawMessage(`{}`)

	azul := wingspanRequest()
	azul.Name = "Azul"
	azul.ShortName = "azul"
	azul.Aliases = nil

	doc := &SeedDocument{Boardgames: []scorekeep.RegisterBoardgameRequest{
		*wingspanRequest(),
		*wingspanRequest(),
		*invalid,
		*azul,
	}}

	report, err := ImportSeed(context.Background(), m, doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"wingspan", "azul"}, report.Created)
	assert.Equal(t, []string{"Wingspan"}, report.Skipped)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "broken", report.Failed[0].ShortName)
	assert.True(t, scorekeep.IsValidationErrors(report.Failed[0].Err, scorekeep.SchemaShapeInvalid))
	assert.Len(t, repo.games, 2)
}

func TestImportSeed_AbortsOnStorageFailure(t *testing.T) {
	m, repo := newTestManager(t)
	repo.createErr = errors.New("disk full")

	azul := wingspanRequest()
	azul.ShortName = "azul"
	doc := &SeedDocument{Boardgames: []scorekeep.RegisterBoardgameRequest{*wingspanRequest(), *azul}}

	report, err := ImportSeed(context.Background(), m, doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.createErr)
	assert.Empty(t, report.Created)

	var se *scorekeep.ScorekeepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, scorekeep.ErrCodeSeedFailed, se.Code)
}
