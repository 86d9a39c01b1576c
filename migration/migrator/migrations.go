package migrator

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io/fs"

	"github.com/stokaro/tenancy/core/sqlutil"
)

// MigrationsTable records which catalog migrations have been applied.
const MigrationsTable = "tenancy_schema_migrations"

//go:embed base/schema.sql
var migrationsSchemaSQL string

// MigrationFunc applies one direction of a migration inside the transaction
// opened for it by the migrator.
type MigrationFunc func(context.Context, *sql.Tx) error

// SplitSQLStatements splits a SQL script into individual statements, dropping
// comments. MySQL does not accept several statements in one Exec.
func SplitSQLStatements(sql string) []string {
	return sqlutil.SplitSQLStatements(sqlutil.StripComments(sql))
}

// MigrationFuncFromSQLFilename returns a migration function that reads SQL
// from a file in fsys and executes it statement by statement.
func MigrationFuncFromSQLFilename(filename string, fsys fs.FS) MigrationFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		script, err := fs.ReadFile(fsys, filename)
		if err != nil {
			return fmt.Errorf("failed to read migration file: %w", err)
		}
		return executeSQLStatements(ctx, tx, string(script))
	}
}

// NoopMigrationFunc is a no-op migration function
func NoopMigrationFunc(context.Context, *sql.Tx) error {
	return nil
}

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// CreateMigrationFromSQL creates a migration from SQL strings
func CreateMigrationFromSQL(version int, description, upSQL, downSQL string) *Migration {
	return &Migration{
		Version:     version,
		Description: description,
		Up: func(ctx context.Context, tx *sql.Tx) error {
			return executeSQLStatements(ctx, tx, upSQL)
		},
		Down: func(ctx context.Context, tx *sql.Tx) error {
			return executeSQLStatements(ctx, tx, downSQL)
		},
	}
}

func executeSQLStatements(ctx context.Context, tx *sql.Tx, script string) error {
	for _, stmt := range SplitSQLStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute SQL statement: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
