package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/lychee-technology/scorekeep"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// ValidateSeedConfig performs basic sanity checks on the S3 seed settings.
func ValidateSeedConfig(cfg scorekeep.SeedConfig) error {
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey == "" {
		return fmt.Errorf("seed.accessKeyId provided without seed.secretAccessKey")
	}
	if cfg.SecretAccessKey != "" && cfg.AccessKeyID == "" {
		return fmt.Errorf("seed.secretAccessKey provided without seed.accessKeyId")
	}
	if cfg.S3Region == "" && cfg.S3Endpoint == "" {
		return fmt.Errorf("seed: s3 sources need s3Region or s3Endpoint")
	}
	return nil
}

// PostgresHealthCheck pings the pool. timeout may be 0 to use a sensible
// default (5s).
func PostgresHealthCheck(ctx context.Context, pool pinger, timeout time.Duration) error {
	if pool == nil {
		return fmt.Errorf("postgres pool not configured")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}
