package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	chstore "strategy-draft-gate/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the target database if needed, applies
// the embedded analytics schema, and returns a connection to the target
// database for the caller to reuse. The database name comes from the DSN
// path.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	// The target database may not exist yet, so the CREATE DATABASE runs
	// over a connection with no database selected.
	adminConn, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := adminConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		adminConn.Close()
		return nil, fmt.Errorf("create database %s: %w", dbName, err)
	}
	if err := adminConn.Close(); err != nil {
		return nil, fmt.Errorf("close admin connection: %w", err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	files, err := sqlFileNames(ClickhouseFS, "clickhouse")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}

	for _, name := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+name)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}

		if err := validateNoSemicolonInStrings(string(data)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("validate migration %s: %w", name, err)
		}

		// The driver rejects multi-statement Exec, so each file is split
		// on semicolons and applied statement by statement.
		for _, stmt := range splitStatements(string(data)) {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", name, err)
			}
		}
	}

	return conn, nil
}

// splitStatements splits migration SQL into statements on semicolons after
// stripping blank and `--` comment lines.
//
// The splitter deliberately does not parse SQL. Migrations under
// clickhouse/ must therefore keep semicolons out of string literals, use
// `--` comments only, and end each statement with a semicolon. The
// string-literal rule is enforced by validateNoSemicolonInStrings before
// any statement runs.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects SQL carrying a semicolon inside a
// single-quoted literal, the one input shape splitStatements cannot handle.
// Doubled quotes ('') are treated as escapes.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal breaks the statement splitter")
			}
		}
	}
	return nil
}

// databaseFromDSN extracts the database name from a clickhouse:// DSN path.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
