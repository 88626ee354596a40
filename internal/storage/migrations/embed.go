// Package migrations carries the gate's database schema as embedded SQL
// and applies it in lexical file order. Every migration is written to be
// idempotent (CREATE ... IF NOT EXISTS) so the runners can execute on each
// startup without tracking applied versions.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

// PostgresFS holds the review_runs / review_records / intake_progress schema.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the criterion_outcomes analytics schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// sqlFileNames lists the .sql files under dir in lexical order, which is
// the order migrations are numbered in.
func sqlFileNames(fsys embed.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
