package e2e_harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	s3AccessKey = "rustfsadmin"
	s3SecretKey = "rustfsadmin"

	pgDatabase = "scorekeep"
)

// TestHarness owns a Postgres and an S3 compatible container for the seed
// round trip. Start brings both up; Close tears down whatever was started.
type TestHarness struct {
	PGDB       *sql.DB
	PGPool     *pgxpool.Pool
	S3Endpoint string

	containers []testcontainers.Container
}

// Start launches both containers and opens the database handles.
func (h *TestHarness) Start(ctx context.Context) error {
	pgAddr, err := h.run(ctx, "postgres:16", "5432/tcp", map[string]string{
		"POSTGRES_PASSWORD": "password",
		"POSTGRES_USER":     "postgres",
		"POSTGRES_DB":       pgDatabase,
	}, wait.ForLog("database system is ready to accept connections").WithOccurrence(2))
	if err != nil {
		return fmt.Errorf("start postgres: %w", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:password@%s/%s?sslmode=disable", pgAddr, pgDatabase)
	if h.PGDB, err = sql.Open("postgres", dsn); err != nil {
		return err
	}
	if err := h.PGDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	if h.PGPool, err = pgxpool.New(ctx, dsn); err != nil {
		return fmt.Errorf("open pgx pool: %w", err)
	}

	s3Addr, err := h.run(ctx, "rustfs/rustfs:latest", "9000/tcp", map[string]string{
		"RUSTFS_ACCESS_KEY": s3AccessKey,
		"RUSTFS_SECRET_KEY": s3SecretKey,
	}, wait.ForListeningPort("9000/tcp"))
	if err != nil {
		return fmt.Errorf("start s3: %w", err)
	}
	h.S3Endpoint = "http://" + s3Addr
	return nil
}

// run starts image with a single exposed port and returns the host:port it
// is mapped to.
func (h *TestHarness) run(ctx context.Context, image, port string, env map[string]string, ready wait.Strategy) (string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{port},
			Env:          env,
			WaitingFor:   wait.ForAll(ready).WithDeadline(time.Minute),
		},
		Started: true,
	})
	h.containers = append(h.containers, container)
	if err != nil {
		return "", err
	}
	return container.Endpoint(ctx, "")
}

// Close releases the handles and terminates every started container.
func (h *TestHarness) Close() error {
	if h.PGPool != nil {
		h.PGPool.Close()
	}
	var errs []error
	if h.PGDB != nil {
		errs = append(errs, h.PGDB.Close())
	}
	for _, c := range h.containers {
		errs = append(errs, testcontainers.TerminateContainer(c))
	}
	h.containers = nil
	return errors.Join(errs...)
}
