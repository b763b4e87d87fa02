package database

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema/postgres.sql
var postgresSchema string

//go:embed schema/sqlite.sql
var sqliteSchema string

// Migrate creates every table and index that does not exist yet.
func Migrate(ctx context.Context, db *DB) error {
	schema := postgresSchema
	if db.Dialect == SQLite {
		schema = sqliteSchema
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply %s schema: %w", db.Dialect, err)
	}
	return nil
}
