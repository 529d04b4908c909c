package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init-db":
		if err := runInitDB(os.Args[2:]); err != nil {
			sugar.Fatalf("init-db: %v", err)
		}
	case "seed":
		if err := runSeed(os.Args[2:]); err != nil {
			sugar.Fatalf("seed: %v", err)
		}
	case "validate-schema":
		if err := runValidateSchema(os.Args[2:]); err != nil {
			sugar.Fatalf("validate-schema: %v", err)
		}
	default:
		sugar.Errorf("unknown command %q", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	logger := zap.S()
	logger.Info("Usage: scorekeep-tools <command> [options]")
	logger.Info("")
	logger.Info("Commands:")
	logger.Info("  init-db           Create the boardgame table")
	logger.Info("  seed              Register the boardgames of a seed document (local file or s3://bucket/key)")
	logger.Info("  validate-schema   Check that a results schema file has the required shape and compiles")
}
