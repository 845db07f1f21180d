//go:build integration

// Integration tests for the PostgreSQL repositories. They require Docker and
// are gated behind the "integration" build tag:
//
//	go test -tags integration ./internal/infrastructure/database/postgres/...
package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/problem"
	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
)

// migrationsPath points from this package to the repo-root migrations dir.
const migrationsPath = "file://../../../../../migrations"

// startPostgres launches a PostgreSQL 16 container, applies the schema
// migrations, and returns a connected pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "longmap_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/longmap_test?sslmode=disable", host, port.Port())

	m, err := migrate.New(migrationsPath, dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	_, _ = m.Close()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func testLogger() logging.Logger { return logging.NewNop() }

// mustProblem builds a valid problem fixture; title must be unique per test
// when the dedup key is exercised.
func mustProblem(t *testing.T, title, source, sourceID string) *problem.Problem {
	t.Helper()
	p, err := problem.New(title, "description of "+title, problem.CategoryOther)
	require.NoError(t, err)
	if source != "" {
		p.WithSource(source, sourceID, "https://example.org/"+sourceID)
	}
	return p
}

func mustCapability(t *testing.T, name string, typ capability.Type) *capability.Capability {
	t.Helper()
	c, err := capability.New(name, "description of "+name, typ)
	require.NoError(t, err)
	return c
}

func mustResource(t *testing.T, name string, typ resource.Type) *resource.Resource {
	t.Helper()
	r, err := resource.New(name, "description of "+name, typ)
	require.NoError(t, err)
	return r
}
