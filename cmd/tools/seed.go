package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/lychee-technology/scorekeep"
	"github.com/lychee-technology/scorekeep/factory"
	"github.com/lychee-technology/scorekeep/internal"
	"go.uber.org/zap"
)

type seedOptions struct {
	database scorekeep.DatabaseConfig
	seed     scorekeep.SeedConfig
	dryRun   bool
}

func parseSeedFlags(args []string, cfg *scorekeep.Config) (*seedOptions, error) {
	flags := newFlagSet("seed", "Usage: scorekeep-tools seed -source <path|s3://bucket/key> [options]")

	opts := &seedOptions{database: cfg.Database, seed: cfg.Seed}
	databaseFlags(flags, &opts.database)
	flags.StringVar(&opts.seed.Source, "source", opts.seed.Source, "seed document path or s3://bucket/key")
	flags.StringVar(&opts.seed.S3Region, "s3-region", opts.seed.S3Region, "S3 region")
	flags.StringVar(&opts.seed.S3Endpoint, "s3-endpoint", opts.seed.S3Endpoint, "custom S3 endpoint")
	flags.BoolVar(&opts.seed.S3UsePathStyle, "s3-path-style", opts.seed.S3UsePathStyle, "use path style S3 addressing")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "only check the results schema shape of every game")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if opts.seed.Source == "" {
		return nil, fmt.Errorf("-source is required")
	}
	return opts, nil
}

func runSeed(args []string) error {
	cfg, err := scorekeep.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	opts, err := parseSeedFlags(args, cfg)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx := context.Background()
	doc, err := internal.LoadSeedDocument(ctx, opts.seed.Source, opts.seed)
	if err != nil {
		return err
	}

	if opts.dryRun {
		return checkSeedDocument(doc)
	}

	pool, err := factory.NewPostgresPool(ctx, opts.database)
	if err != nil {
		return err
	}
	defer pool.Close()

	cfg.Database = opts.database
	manager, err := factory.NewBoardgameManagerWithConfig(cfg, pool)
	if err != nil {
		return err
	}

	report, err := internal.ImportSeed(ctx, manager, doc)
	if err != nil {
		return err
	}
	zap.S().Infow("seed finished",
		"source", opts.seed.Source,
		"created", len(report.Created),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed),
	)
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d boardgames were rejected", len(report.Failed))
	}
	return nil
}

// checkSeedDocument runs the results schema shape check on every game
// without touching the database.
func checkSeedDocument(doc *internal.SeedDocument) error {
	failed := 0
	for _, req := range doc.Boardgames {
		if err := internal.ValidateIsValidResultsSchema([]byte(req.ResultsSchema)); err != nil {
			failed++
			zap.S().Warnw("results schema rejected", "shortName", req.ShortName, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d boardgames have an invalid results schema", failed, len(doc.Boardgames))
	}
	zap.S().Infow("seed document ok", "boardgames", len(doc.Boardgames))
	return nil
}

func runValidateSchema(args []string) error {
	flags := newFlagSet("validate-schema", "Usage: scorekeep-tools validate-schema <file>")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf("expected exactly one schema file")
	}

	raw, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	return validateSchemaFile(raw)
}

func validateSchemaFile(raw []byte) error {
	if err := internal.ValidateIsValidResultsSchema(raw); err != nil {
		return err
	}
	var schema scorekeep.PropertySchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	if _, err := internal.Compile(schema, internal.CompileOptions{}); err != nil {
		return err
	}
	zap.S().Infow("results schema ok", "required", schema.Required)
	return nil
}
