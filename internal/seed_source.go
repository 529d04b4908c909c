package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/scorekeep"
	"go.uber.org/zap"
)

// SeedDocument is the file format accepted by the seed command.
type SeedDocument struct {
	Boardgames []scorekeep.RegisterBoardgameRequest `json:"boardgames"`
}

// SeedFailure records a game the seed could not register.
type SeedFailure struct {
	ShortName string
	Err       error
}

// SeedReport summarizes an import.
type SeedReport struct {
	Created []string
	Skipped []string
	Failed  []SeedFailure
}

// ParseSeedDocument decodes a seed document.
func ParseSeedDocument(data []byte) (*SeedDocument, error) {
	var doc SeedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, scorekeep.NewSeedError("invalid seed document", err)
	}
	if doc.Boardgames == nil {
		return nil, scorekeep.NewSeedError("seed document has no boardgames list", nil)
	}
	return &doc, nil
}

// ParseS3URI splits s3://bucket/key. ok is false for anything else.
func ParseS3URI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// LoadSeedDocument reads a seed document from a local path or an s3:// URI.
func LoadSeedDocument(ctx context.Context, source string, cfg scorekeep.SeedConfig) (*SeedDocument, error) {
	var (
		data []byte
		err  error
	)
	if bucket, key, ok := ParseS3URI(source); ok {
		if err := ValidateSeedConfig(cfg); err != nil {
			return nil, scorekeep.NewSeedError("invalid seed configuration", err)
		}
		data, err = DownloadSeedObject(ctx, cfg, bucket, key)
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			err = scorekeep.NewSeedError(fmt.Sprintf("read seed file %s", source), err)
		}
	}
	if err != nil {
		return nil, err
	}
	return ParseSeedDocument(data)
}

// NewSeedS3Client builds an S3 client from the seed settings. Static
// credentials and a custom endpoint are optional.
func NewSeedS3Client(ctx context.Context, cfg scorekeep.SeedConfig) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.S3Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	if cfg.S3Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.S3Endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	}), nil
}

// DownloadSeedObject fetches s3://bucket/key into memory.
func DownloadSeedObject(ctx context.Context, cfg scorekeep.SeedConfig, bucket, key string) ([]byte, error) {
	client, err := NewSeedS3Client(ctx, cfg)
	if err != nil {
		return nil, scorekeep.NewSeedError("create s3 client", err)
	}

	buf := manager.NewWriteAtBuffer(nil)
	n, err := manager.NewDownloader(client).Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "NoSuchKey", "NotFound", "NoSuchBucket":
				return nil, scorekeep.NewNotFoundError("seed object", "s3://"+bucket+"/"+key).WithDetail("s3Code", apiErr.ErrorCode())
			}
		}
		return nil, scorekeep.NewSeedError(fmt.Sprintf("download s3://%s/%s", bucket, key), err)
	}

	zap.S().Infow("downloaded seed document", "bucket", bucket, "key", key, "bytes", n)
	return buf.Bytes(), nil
}

// ImportSeed registers every game of doc. Games whose short name is taken
// are skipped and games that fail validation are reported; any other error
// aborts the import.
func ImportSeed(ctx context.Context, boardgames scorekeep.BoardgameManager, doc *SeedDocument) (*SeedReport, error) {
	report := &SeedReport{}
	for i := range doc.Boardgames {
		req := &doc.Boardgames[i]

		game, err := boardgames.Register(ctx, req)
		switch {
		case err == nil:
			report.Created = append(report.Created, game.ShortName)
			zap.S().Infow("seeded boardgame", "shortName", game.ShortName, "id", game.ID)
		case scorekeep.IsAlreadyExistsError(err):
			report.Skipped = append(report.Skipped, req.ShortName)
			zap.S().Warnw("boardgame already exists, skipping", "shortName", req.ShortName)
		case isValidationFailure(err):
			report.Failed = append(report.Failed, SeedFailure{ShortName: req.ShortName, Err: err})
			zap.S().Warnw("boardgame rejected", "shortName", req.ShortName, "error", err)
		default:
			return report, scorekeep.NewSeedError(fmt.Sprintf("register %s", req.ShortName), err)
		}
	}
	return report, nil
}

func isValidationFailure(err error) bool {
	_, ok := scorekeep.AsValidationErrors(err)
	return ok
}
