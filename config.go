package scorekeep

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Environment names the deployment stage.
type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentTest        Environment = "test"
	EnvironmentProduction  Environment = "production"
)

// Config holds all runtime settings
type Config struct {
	Environment Environment    `json:"environment" env:"SCOREKEEP_ENV"`
	Database    DatabaseConfig `json:"database" envPrefix:"DB_"`
	Cache       CacheConfig    `json:"cache" envPrefix:"CACHE_"`
	Logging     LoggingConfig  `json:"logging" envPrefix:"LOG_"`
	Seed        SeedConfig     `json:"seed" envPrefix:"SEED_"`
	Server      ServerConfig   `json:"server"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host" env:"HOST"`
	Port            int           `json:"port" env:"PORT"`
	Database        string        `json:"database" env:"NAME"`
	Username        string        `json:"username" env:"USER"`
	Password        string        `json:"password" env:"PASSWORD"`
	SSLMode         string        `json:"sslMode" env:"SSL_MODE"`
	MaxConnections  int           `json:"maxConnections" env:"MAX_CONNECTIONS"`
	MaxIdleConns    int           `json:"maxIdleConns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime" env:"CONN_MAX_IDLE_TIME"`
	Timeout         time.Duration `json:"timeout" env:"TIMEOUT"`
	BoardgameTable  string        `json:"boardgameTable" env:"BOARDGAME_TABLE"`

	// IAM authentication against Aurora DSQL; the password is replaced by a
	// generated token when enabled.
	IAMAuth   bool   `json:"iamAuth" env:"IAM_AUTH"`
	IAMRegion string `json:"iamRegion" env:"IAM_REGION"`
}

// CacheConfig contains in-process cache settings
type CacheConfig struct {
	NameIndexTTL       time.Duration `json:"nameIndexTTL" env:"NAME_INDEX_TTL"`
	DevNameIndexTTL    time.Duration `json:"devNameIndexTTL" env:"DEV_NAME_INDEX_TTL"`
	CompiledSchemaSize int           `json:"compiledSchemaSize" env:"COMPILED_SCHEMA_SIZE"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `json:"level" env:"LEVEL"`
	Development bool   `json:"development" env:"DEVELOPMENT"`
}

// SeedConfig contains settings for reading seed documents from S3
type SeedConfig struct {
	Source          string `json:"source" env:"SOURCE"`
	S3Region        string `json:"s3Region" env:"S3_REGION"`
	S3Endpoint      string `json:"s3Endpoint" env:"S3_ENDPOINT"`
	S3UsePathStyle  bool   `json:"s3UsePathStyle" env:"S3_USE_PATH_STYLE"`
	AccessKeyID     string `json:"accessKeyId" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `json:"secretAccessKey" env:"S3_SECRET_ACCESS_KEY"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port string `json:"port" env:"PORT"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvironmentDevelopment,
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "scorekeep",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
			BoardgameTable:  "boardgames",
		},
		Cache: CacheConfig{
			// New games become searchable within a minute; raise CACHE_NAME_INDEX_TTL
			// to trade freshness for fewer table scans.
			NameIndexTTL:       time.Minute,
			DevNameIndexTTL:    time.Second,
			CompiledSchemaSize: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Seed: SeedConfig{
			S3Region: "us-east-1",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// LoadConfigFromEnv overlays environment variables on DefaultConfig.
func LoadConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NameIndexTTL returns the freshness window of the name index for the
// configured environment.
func (c *Config) NameIndexTTL() time.Duration {
	if c.Environment == EnvironmentDevelopment {
		return c.Cache.DevNameIndexTTL
	}
	return c.Cache.NameIndexTTL
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvironmentDevelopment, EnvironmentTest, EnvironmentProduction:
	default:
		return &ConfigError{Field: "environment", Message: "must be one of development, test, production"}
	}

	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}

	if strings.TrimSpace(c.Database.BoardgameTable) == "" {
		return &ConfigError{Field: "database.boardgameTable", Message: "must not be empty"}
	}

	if c.Database.IAMAuth && c.Database.IAMRegion == "" {
		return &ConfigError{Field: "database.iamRegion", Message: "is required when iamAuth is enabled"}
	}

	if c.Cache.NameIndexTTL <= 0 || c.Cache.DevNameIndexTTL <= 0 {
		return &ConfigError{Field: "cache.nameIndexTTL", Message: "must be greater than 0"}
	}

	if c.Cache.CompiledSchemaSize < 0 {
		return &ConfigError{Field: "cache.compiledSchemaSize", Message: "must not be negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
