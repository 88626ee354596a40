package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a throwaway Postgres container, applies the review
// schema, and returns a connected pool plus a cleanup to defer.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "container connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "create pool")

	applyMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return pool, cleanup
}

// applyMigrations runs the .sql files from the sibling migrations package
// in lexical order. They are read from disk relative to this source file:
// the migrations package imports this one for Pool, so the tests cannot
// import it back.
func applyMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "resolve test source path")
	dir := filepath.Join(filepath.Dir(thisFile), "..", "migrations", "postgres")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err, "read migrations directory")

	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	require.NotEmpty(t, files, "no .sql migrations found in %s", dir)

	for _, name := range files {
		sql, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, "read migration %s", name)

		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "apply migration %s", name)
	}
}
