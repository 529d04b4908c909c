package scorekeep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, EnvironmentDevelopment, cfg.Environment)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "boardgames", cfg.Database.BoardgameTable)
	assert.Equal(t, time.Minute, cfg.Cache.NameIndexTTL)
	assert.Equal(t, time.Second, cfg.Cache.DevNameIndexTTL)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_NameIndexTTL(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Second, cfg.NameIndexTTL())

	cfg.Environment = EnvironmentProduction
	assert.Equal(t, time.Minute, cfg.NameIndexTTL())

	cfg.Environment = EnvironmentTest
	assert.Equal(t, time.Minute, cfg.NameIndexTTL())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SCOREKEEP_ENV", "production")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_BOARDGAME_TABLE", "boardgames_prod")
	t.Setenv("CACHE_NAME_INDEX_TTL", "2m")
	t.Setenv("SEED_S3_USE_PATH_STYLE", "true")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, EnvironmentProduction, cfg.Environment)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "boardgames_prod", cfg.Database.BoardgameTable)
	assert.Equal(t, 2*time.Minute, cfg.NameIndexTTL())
	assert.True(t, cfg.Seed.S3UsePathStyle)
	assert.Equal(t, "9090", cfg.Server.Port)
	// untouched defaults survive
	assert.Equal(t, 25, cfg.Database.MaxConnections)
}

func TestLoadConfigFromEnv_LongNameIndexTTL(t *testing.T) {
	t.Setenv("SCOREKEEP_ENV", "production")
	t.Setenv("CACHE_NAME_INDEX_TTL", "16h40m")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 60*1000*time.Second, cfg.NameIndexTTL())
	assert.Equal(t, time.Second, cfg.Cache.DevNameIndexTTL)
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	t.Setenv("SCOREKEEP_ENV", "staging")
	_, err := LoadConfigFromEnv()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "environment", cfgErr.Field)
}

func TestConfig_ValidateIAMRequiresRegion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.IAMAuth = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iamRegion")

	cfg.Database.IAMRegion = "us-east-1"
	assert.NoError(t, cfg.Validate())
}
