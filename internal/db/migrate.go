package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the database schema.  Statements use IF NOT EXISTS so the
// migration can run on every start.  They are executed one by one because
// not every driver accepts several statements per Exec.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
