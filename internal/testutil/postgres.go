// Package testutil provides test helpers including container management
// and test client utilities.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/metagrid-dev/metagrid/internal/config"
	"github.com/metagrid-dev/metagrid/internal/storage/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	container testcontainers.Container
	Pool      *postgres.Pool
	RawPool   *pgxpool.Pool
	Config    config.DatabaseConfig
}

// NewPostgresContainer starts a PostgreSQL test container and returns
// a connected Pool.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected pool,
// or fails the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v [%s]", err, time.Since(start))
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	dbCfg := config.DatabaseConfig{
		Host:            host,
		Port:            mappedPort.Int(),
		User:            "test",
		Password:        "test",
		Name:            "test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}

	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v [%s]", err, time.Since(start))
	}

	t.Logf("postgres container started [%s]", time.Since(start))

	pc := &PostgresContainer{
		container: container,
		Pool:      pool,
		RawPool:   pool.DB(),
		Config:    dbCfg,
	}

	t.Cleanup(func() {
		pool.Close()
		_ = container.Terminate(ctx)
	})

	return pc
}

// ApplyMigrations runs the schema creation SQL directly for tests.
// This avoids requiring the migrate tool in the test environment.
//
// Precondition: Pool must be connected.
// Postcondition: All application tables exist in the test database.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	schema := `
		CREATE EXTENSION IF NOT EXISTS "pgcrypto";

		CREATE TABLE IF NOT EXISTS avatars (
			id        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name      VARCHAR(128) NOT NULL,
			image_url TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS accounts (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username      VARCHAR(64) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          VARCHAR(16) NOT NULL DEFAULT 'user',
			avatar_id     UUID REFERENCES avatars(id),
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts (username);

		CREATE TABLE IF NOT EXISTS elements (
			id        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			image_url TEXT NOT NULL,
			width     INT NOT NULL,
			height    INT NOT NULL,
			static    BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS maps (
			id        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name      VARCHAR(128) NOT NULL,
			thumbnail TEXT,
			width     INT NOT NULL,
			height    INT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS map_elements (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			map_id     UUID NOT NULL REFERENCES maps(id) ON DELETE CASCADE,
			element_id UUID NOT NULL REFERENCES elements(id),
			x          INT NOT NULL,
			y          INT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS spaces (
			id        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id  UUID NOT NULL REFERENCES accounts(id),
			name      VARCHAR(128) NOT NULL,
			width     INT NOT NULL,
			height    INT NOT NULL,
			thumbnail TEXT,
			spawn_x   INT NOT NULL DEFAULT 0,
			spawn_y   INT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_spaces_owner ON spaces (owner_id);

		CREATE TABLE IF NOT EXISTS space_elements (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			space_id   UUID NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			element_id UUID NOT NULL REFERENCES elements(id),
			x          INT NOT NULL,
			y          INT NOT NULL
		);
	`

	_, err := pc.RawPool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	t.Logf("migrations applied [%s]", time.Since(start))
}

// DSN returns the connection string for the test database.
func (pc *PostgresContainer) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pc.Config.User, pc.Config.Password,
		pc.Config.Host, pc.Config.Port,
		pc.Config.Name, pc.Config.SSLMode,
	)
}
