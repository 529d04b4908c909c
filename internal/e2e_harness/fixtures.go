package e2e_harness

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/scorekeep"
	"github.com/lychee-technology/scorekeep/internal"
)

// SeedTable creates the boardgame table.
func SeedTable(ctx context.Context, db *sql.DB, table string) error {
	if _, err := db.ExecContext(ctx, internal.BoardgamesTableDDL(table)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// S3SeedConfig points the seed loader at the harness container.
func (h *TestHarness) S3SeedConfig() scorekeep.SeedConfig {
	return scorekeep.SeedConfig{
		S3Region:        "us-east-1",
		S3Endpoint:      h.S3Endpoint,
		S3UsePathStyle:  true,
		AccessKeyID:     s3AccessKey,
		SecretAccessKey: s3SecretKey,
	}
}

// SampleSeedDocument returns three games: two valid and one whose results
// schema lacks the winner declaration.
func SampleSeedDocument() *internal.SeedDocument {
	results := json.RawMessage(`{
		"type": "object",
		"required": ["player", "winner", "points"],
		"properties": {
			"player": {"type": "string"},
			"winner": {"type": "boolean"},
			"points": {"type": "number", "minimum": 0}
		}
	}`)
	two := uint32(2)
	bgg := "https://boardgamegeek.com/boardgame/266192/wingspan"

	return &internal.SeedDocument{Boardgames: []scorekeep.RegisterBoardgameRequest{
		{
			Name:          "Wingspan",
			ShortName:     "wingspan",
			Aliases:       []string{"Flügelschlag"},
			Thumbnail:     "https://cf.geekdo-images.com/wingspan.jpg",
			URL:           &bgg,
			MaxPlayers:    5,
			ResultsSchema: results,
		},
		{
			Type:          scorekeep.GameTypeCollaborative,
			Name:          "Pandemic",
			ShortName:     "pandemic",
			Thumbnail:     "https://cf.geekdo-images.com/pandemic.jpg",
			MinPlayers:    &two,
			MaxPlayers:    4,
			ResultsSchema: results,
			MetadataSchema: json.RawMessage(`{
				"type": "object",
				"required": ["outbreaks"],
				"properties": {"outbreaks": {"type": "number", "maximum": 8}}
			}`),
		},
		{
			Name:          "Broken",
			ShortName:     "broken",
			Thumbnail:     "https://cf.geekdo-images.com/broken.jpg",
			MaxPlayers:    2,
			ResultsSchema: json.RawMessage(`{"type":"object","required":["player"],"properties":{"player":{"type":"string"}}}`),
		},
	}}
}

// UploadSeedDocument writes doc to s3://bucket/key, creating the bucket when
// it does not exist yet.
func UploadSeedDocument(ctx context.Context, cfg scorekeep.SeedConfig, bucket, key string, doc *internal.SeedDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode seed document: %w", err)
	}

	s3Client, err := internal.NewSeedS3Client(ctx, cfg)
	if err != nil {
		return err
	}

	if _, err := s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		if _, cerr := s3Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); cerr != nil {
			var apiErr smithy.APIError
			if !errors.As(cerr, &apiErr) {
				return fmt.Errorf("create bucket: %w", cerr)
			}
			code := apiErr.ErrorCode()
			if code != "BucketAlreadyOwnedByYou" && code != "BucketAlreadyExists" {
				return fmt.Errorf("create bucket: %w", cerr)
			}
		}
	}

	_, err = manager.NewUploader(s3Client).Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	return nil
}
