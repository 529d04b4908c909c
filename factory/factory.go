package factory

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/scorekeep"
	"github.com/lychee-technology/scorekeep/internal"
	"go.uber.org/zap"
)

type queryPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// tableCollector lists the base tables of the public schema. Tests replace it.
var tableCollector = collectTables

// tokenGenerator returns a DSQL connect token. Tests replace it.
var tokenGenerator = generateAuthToken

func collectTables(pool queryPool) ([]string, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	rows, err := pool.Query(context.Background(), `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`)
	if err != nil {
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tables, nil
}

// NewBoardgameManagerWithConfig creates a BoardgameManager backed by the
// boardgame table of pool. The table must already exist; see the tools
// init-db command.
//
// Usage:
//
//	config, err := scorekeep.LoadConfigFromEnv()
//	pool, err := factory.NewPostgresPool(ctx, config.Database)
//	manager, err := factory.NewBoardgameManagerWithConfig(config, pool)
func NewBoardgameManagerWithConfig(config *scorekeep.Config, pool *pgxpool.Pool) (scorekeep.BoardgameManager, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	var collectorPool queryPool
	if pool != nil {
		collectorPool = pool
	}
	tables, err := tableCollector(collectorPool)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(tables, config.Database.BoardgameTable) {
		return nil, fmt.Errorf("required table %q is missing in the database", config.Database.BoardgameTable)
	}

	return newBoardgameManager(config, internal.NewPostgresBoardgameRepository(pool, config.Database.BoardgameTable))
}

func newBoardgameManager(config *scorekeep.Config, repository scorekeep.BoardgameRepository) (scorekeep.BoardgameManager, error) {
	var schemas *internal.SchemaCache
	if config.Cache.CompiledSchemaSize > 0 {
		var err error
		schemas, err = internal.NewSchemaCache(config.Cache.CompiledSchemaSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create schema cache: %w", err)
		}
	}

	ttl := config.NameIndexTTL()
	names := internal.NewNameIndexCache(repository, ttl)

	zap.S().Infow("boardgame manager ready",
		"environment", config.Environment,
		"table", config.Database.BoardgameTable,
		"nameIndexTTL", ttl,
		"compiledSchemaCache", config.Cache.CompiledSchemaSize,
	)
	return internal.NewBoardgameManager(repository, schemas, names), nil
}

// NewPostgresPool opens a pgx pool. With IAMAuth set, every new connection
// authenticates with a freshly generated DSQL token instead of the password.
func NewPostgresPool(ctx context.Context, cfg scorekeep.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.IAMAuth {
		useIAMAuth(poolConfig, cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

func buildPoolConfig(cfg scorekeep.DatabaseConfig) (*pgxpool.Config, error) {
	dsn := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.IAMAuth {
		dsn.User = url.User(cfg.Username)
	} else {
		dsn.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	query := url.Values{}
	if cfg.SSLMode != "" {
		query.Set("sslmode", cfg.SSLMode)
	}
	if cfg.Timeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(cfg.Timeout.Seconds())))
	}
	dsn.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(dsn.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(min(cfg.MaxIdleConns, cfg.MaxConnections))
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	return poolConfig, nil
}

func useIAMAuth(poolConfig *pgxpool.Config, cfg scorekeep.DatabaseConfig) {
	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		token, err := tokenGenerator(ctx, endpoint, cfg.IAMRegion)
		if err != nil {
			return fmt.Errorf("generate dsql auth token: %w", err)
		}
		cc.Password = token
		return nil
	}
}

func generateAuthToken(ctx context.Context, endpoint, region string) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}
	token, err := auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
	if err != nil {
		return "", err
	}
	zap.S().Debugw("generated IAM auth token for Postgres connection (dsql)", "endpoint", endpoint)
	return token, nil
}
