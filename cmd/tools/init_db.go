package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/lychee-technology/scorekeep"
	"github.com/lychee-technology/scorekeep/factory"
	"github.com/lychee-technology/scorekeep/internal"
	"go.uber.org/zap"
)

// databaseFlags binds the database settings onto flags, defaulting to the
// environment configuration.
func databaseFlags(flags *flag.FlagSet, db *scorekeep.DatabaseConfig) {
	flags.StringVar(&db.Host, "db-host", db.Host, "database host")
	flags.IntVar(&db.Port, "db-port", db.Port, "database port")
	flags.StringVar(&db.Database, "db-name", db.Database, "database name")
	flags.StringVar(&db.Username, "db-user", db.Username, "database user")
	flags.StringVar(&db.Password, "db-password", db.Password, "database password")
	flags.StringVar(&db.SSLMode, "db-ssl-mode", db.SSLMode, "database sslmode")
	flags.StringVar(&db.BoardgameTable, "table", db.BoardgameTable, "boardgame table name")
	flags.BoolVar(&db.IAMAuth, "iam-auth", db.IAMAuth, "authenticate with a DSQL IAM token")
	flags.StringVar(&db.IAMRegion, "iam-region", db.IAMRegion, "AWS region for the IAM token")
}

func newFlagSet(name, usage string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println(usage)
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}
	return flags
}

type initDBOptions struct {
	database scorekeep.DatabaseConfig
	dryRun   bool
}

func parseInitDBFlags(args []string, cfg *scorekeep.Config) (*initDBOptions, error) {
	flags := newFlagSet("init-db", "Usage: scorekeep-tools init-db [options]")

	opts := &initDBOptions{database: cfg.Database}
	databaseFlags(flags, &opts.database)
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the DDL instead of executing it")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func runInitDB(args []string) error {
	cfg, err := scorekeep.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	opts, err := parseInitDBFlags(args, cfg)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	ddl := internal.BoardgamesTableDDL(opts.database.BoardgameTable)
	if opts.dryRun {
		fmt.Println(ddl + ";")
		return nil
	}

	ctx := context.Background()
	pool, err := factory.NewPostgresPool(ctx, opts.database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", opts.database.BoardgameTable, err)
	}

	zap.S().Infow("database initialized", "host", opts.database.Host, "database", opts.database.Database, "table", opts.database.BoardgameTable)
	return nil
}
