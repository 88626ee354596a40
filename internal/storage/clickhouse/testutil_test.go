package clickhouse

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start ClickHouse container
	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	// Get native port (9000)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	// Connect to ClickHouse
	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	// Run migrations
	runMigrations(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// runMigrations applies all SQL migrations from the migrations directory.
func runMigrations(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	migrations := []string{
		"001_criterion_outcomes.sql",
	}

	basePath := findSQLDir()

	for _, m := range migrations {
		path := basePath + "/" + m
		content, err := os.ReadFile(path)
		if err != nil {
			t.Logf("Could not read migration %s: %v, trying inline migrations", m, err)
			// Fall back to inline migrations
			runInlineMigrations(t, conn)
			return
		}

		err = conn.Exec(ctx, string(content))
		require.NoError(t, err, "failed to apply migration %s", m)
	}
}

// findSQLDir attempts to locate the clickhouse migrations directory
func findSQLDir() string {
	paths := []string{
		"../migrations/clickhouse",
		"../../../internal/storage/migrations/clickhouse",
		"internal/storage/migrations/clickhouse",
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	// Default path
	return "../migrations/clickhouse"
}

// runInlineMigrations applies migrations directly without reading files
func runInlineMigrations(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	// 001_criterion_outcomes.sql
	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS criterion_outcomes (
			run_id String,
			draft_id String,
			criterion_id String,
			severity String,
			score UInt32,
			weight UInt32,
			entry_family String,
			variant String,
			verdict String,
			generated_at_utc DateTime('UTC'),
			created_at DateTime DEFAULT now()
		)
		ENGINE = ReplacingMergeTree(created_at)
		ORDER BY (run_id, draft_id, criterion_id)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)
}
