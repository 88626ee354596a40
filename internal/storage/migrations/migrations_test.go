package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- leading comment
CREATE TABLE a (x String) ENGINE = MergeTree() ORDER BY x;

-- another comment
CREATE TABLE b (y String) ENGINE = MergeTree() ORDER BY y;
`

	stmts := splitStatements(input)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE a") {
		t.Errorf("unexpected first statement: %q", stmts[0])
	}
	if !strings.HasPrefix(stmts[1], "CREATE TABLE b") {
		t.Errorf("unexpected second statement: %q", stmts[1])
	}
}

func TestSplitStatementsEmptyAndCommentOnly(t *testing.T) {
	if stmts := splitStatements(""); len(stmts) != 0 {
		t.Errorf("expected no statements for empty input, got %v", stmts)
	}
	if stmts := splitStatements("-- just a comment\n\n-- another\n"); len(stmts) != 0 {
		t.Errorf("expected no statements for comment-only input, got %v", stmts)
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr bool
	}{
		{"plain statement", "CREATE TABLE t (x String);", false},
		{"string without semicolon", "SELECT 'hello world';", false},
		{"string with semicolon", "SELECT 'hello;world';", true},
		{"escaped quote then semicolon outside", "SELECT 'it''s fine';", false},
		{"timezone literal", "CREATE TABLE t (ts DateTime('UTC'));", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateNoSemicolonInStrings(tt.sql)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateNoSemicolonInStrings(%q) error = %v, wantErr %v", tt.sql, err, tt.wantErr)
			}
		})
	}
}

func TestEmbeddedPostgresMigrations(t *testing.T) {
	entries, err := fs.ReadDir(PostgresFS, "postgres")
	if err != nil {
		t.Fatalf("read embedded postgres migrations: %v", err)
	}

	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 postgres migrations, got %v", files)
	}
}

func TestEmbeddedClickhouseMigrationsSplitCleanly(t *testing.T) {
	entries, err := fs.ReadDir(ClickhouseFS, "clickhouse")
	if err != nil {
		t.Fatalf("read embedded clickhouse migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded clickhouse migrations")
	}

	for _, entry := range entries {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if err := validateNoSemicolonInStrings(string(data)); err != nil {
			t.Errorf("%s violates splitter constraint: %v", entry.Name(), err)
		}
		if stmts := splitStatements(string(data)); len(stmts) == 0 {
			t.Errorf("%s splits into no statements", entry.Name())
		}
	}
}
