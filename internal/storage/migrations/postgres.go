package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"strategy-draft-gate/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded review schema. Each file runs
// as one Exec call: pgx's simple protocol accepts multi-statement SQL, so
// no statement splitting is needed on the Postgres side.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFileNames(PostgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("read embedded postgres migrations: %w", err)
	}

	for _, name := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	return nil
}
