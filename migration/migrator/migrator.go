// Package migrator applies versioned migrations to the shared catalog schema.
//
// Every migration runs in its own transaction together with the bookkeeping
// row in tenancy_schema_migrations. On PostgreSQL the transaction also takes
// an advisory lock so that several processes bootstrapping the same database
// apply each migration exactly once.
package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"

	sq "github.com/Masterminds/squirrel"

	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/core/sqlutil"
	"github.com/stokaro/tenancy/dbschema"
)

// advisoryLockKey serializes catalog migrations across processes on PostgreSQL.
const advisoryLockKey = 7_396_117_010

// MigrationStatus represents the current state of migrations
type MigrationStatus struct {
	CurrentVersion    int   `json:"current_version"`
	PendingMigrations []int `json:"pending_migrations"`
	TotalMigrations   int   `json:"total_migrations"`
	HasPendingChanges bool  `json:"has_pending_changes"`
}

// Migrator applies catalog migrations
type Migrator struct {
	conn              *dbschema.DatabaseConnection
	migrationProvider MigrationProvider
	initialized       bool
	logger            *slog.Logger
}

// NewFSMigrator creates a migrator loading its migrations from fsys; see
// NewFSMigrationProvider for the file naming convention.
func NewFSMigrator(conn *dbschema.DatabaseConnection, fsys fs.FS) (*Migrator, error) {
	provider, err := NewFSMigrationProvider(fsys)
	if err != nil {
		return nil, err
	}
	return NewMigrator(conn, provider), nil
}

// NewMigrator creates a new migrator with the given database connection
func NewMigrator(conn *dbschema.DatabaseConnection, provider MigrationProvider) *Migrator {
	return &Migrator{
		conn:              conn,
		migrationProvider: provider,
		logger:            slog.Default(),
	}
}

// WithLogger sets the logger for the migrator
func (m *Migrator) WithLogger(l *slog.Logger) *Migrator {
	tmp := *m
	tmp.logger = l
	return &tmp
}

// MigrationProvider returns the migration provider
func (m *Migrator) MigrationProvider() MigrationProvider {
	return m.migrationProvider
}

func (m *Migrator) builder() sq.StatementBuilderType {
	return sqlutil.StatementBuilder(m.conn.Dialect())
}

// Initialize creates the migrations table if it doesn't exist
func (m *Migrator) Initialize(ctx context.Context) error {
	if m.initialized {
		return nil
	}
	if _, err := m.conn.ExecContext(ctx, migrationsSchemaSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	m.initialized = true
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (m *Migrator) currentVersion(ctx context.Context, q queryRower) (int, error) {
	query, args, err := m.builder().Select("COALESCE(MAX(version), 0)").From(MigrationsTable).ToSql()
	if err != nil {
		return 0, err
	}

	var version int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// GetCurrentVersion returns the current migration version from the database
func (m *Migrator) GetCurrentVersion(ctx context.Context) (int, error) {
	if err := m.Initialize(ctx); err != nil {
		return 0, fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	version, err := m.currentVersion(ctx, m.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// GetAppliedMigrations returns a list of applied migration versions
func (m *Migrator) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	query, args, err := m.builder().Select("version").From(MigrationsTable).OrderBy("version").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := m.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []int
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied = append(applied, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows: %w", err)
	}
	return applied, nil
}

// GetPendingMigrations returns a list of pending migration versions
func (m *Migrator) GetPendingMigrations(ctx context.Context) ([]int, error) {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	var pending []int
	for _, migration := range m.migrationProvider.Migrations() {
		if migration.Version > currentVersion {
			pending = append(pending, migration.Version)
		}
	}
	slices.Sort(pending)
	return pending, nil
}

// GetPreviousMigrationVersion finds the migration version preceding the
// current one. It returns 0 when only the first migration is applied and an
// error when nothing is applied.
func (m *Migrator) GetPreviousMigrationVersion(ctx context.Context) (int, error) {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return -1, err
	}
	if currentVersion == 0 {
		return -1, errors.New("no previous migrations exist")
	}

	previousVersion := 0
	for _, migration := range m.migrationProvider.Migrations() {
		if migration.Version >= currentVersion {
			break
		}
		previousVersion = migration.Version
	}
	return previousVersion, nil
}

// GetMigrationStatus returns information about the current migration status
func (m *Migrator) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	pendingMigrations, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending migrations: %w", err)
	}

	return &MigrationStatus{
		CurrentVersion:    currentVersion,
		PendingMigrations: pendingMigrations,
		TotalMigrations:   len(m.migrationProvider.Migrations()),
		HasPendingChanges: len(pendingMigrations) > 0,
	}, nil
}

// MigrateUp migrates the database up to the latest version
func (m *Migrator) MigrateUp(ctx context.Context) error {
	migrations := m.migrationProvider.Migrations()
	if len(migrations) == 0 {
		return m.Initialize(ctx)
	}
	return m.migrateUpTo(ctx, migrations[len(migrations)-1].Version)
}

// MigrateDown reverts the most recently applied migration
func (m *Migrator) MigrateDown(ctx context.Context) error {
	targetVersion, err := m.GetPreviousMigrationVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get previous version: %w", err)
	}
	return m.MigrateDownTo(ctx, targetVersion)
}

// MigrateTo migrates the database to a specific version (up or down)
func (m *Migrator) MigrateTo(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return err
	}

	switch {
	case targetVersion == currentVersion:
		m.logger.Info("Already at target version", "version", targetVersion)
		return nil
	case targetVersion > currentVersion:
		return m.migrateUpTo(ctx, targetVersion)
	default:
		return m.MigrateDownTo(ctx, targetVersion)
	}
}

func (m *Migrator) migrateUpTo(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return err
	}

	migrations := m.migrationProvider.Migrations()
	m.logger.Info("Migrating up", "currentVersion", currentVersion, "targetVersion", targetVersion, "totalMigrations", len(migrations))

	for _, migration := range migrations {
		if migration.Version <= currentVersion || migration.Version > targetVersion {
			continue
		}
		if err := m.apply(ctx, migration, true); err != nil {
			return err
		}
	}

	m.logger.Info("Migrated successfully", "targetVersion", targetVersion)
	return nil
}

// MigrateDownTo reverts every applied migration above targetVersion
func (m *Migrator) MigrateDownTo(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return err
	}
	if targetVersion >= currentVersion {
		m.logger.Info("Already at or below target version", "targetVersion", targetVersion, "currentVersion", currentVersion)
		return nil
	}

	migrations := slices.Clone(m.migrationProvider.Migrations())
	slices.Reverse(migrations)

	m.logger.Info("Migrating down", "targetVersion", targetVersion, "currentVersion", currentVersion, "totalMigrations", len(migrations))

	for _, migration := range migrations {
		if migration.Version <= targetVersion || migration.Version > currentVersion {
			continue
		}
		if err := m.apply(ctx, migration, false); err != nil {
			return err
		}
	}

	m.logger.Info("Rolled back successfully", "targetVersion", targetVersion)
	return nil
}

// apply runs one direction of a migration and its bookkeeping in a single
// transaction. The applied state is re-read under the lock so a migration
// applied concurrently by another process is skipped.
func (m *Migrator) apply(ctx context.Context, migration *Migration, up bool) (err error) {
	action := "apply"
	if !up {
		action = "revert"
	}

	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if m.conn.Dialect() == platform.Postgres {
		if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
			return fmt.Errorf("failed to lock migrations: %w", err)
		}
	}

	applied, err := m.isApplied(ctx, tx, migration.Version)
	if err != nil {
		return fmt.Errorf("failed to check migration %d: %w", migration.Version, err)
	}
	if applied == up {
		m.logger.Info("Skipping migration", "version", migration.Version, "description", migration.Description)
		return tx.Rollback()
	}

	m.logger.Info("Running migration", "action", action, "version", migration.Version, "description", migration.Description)

	fn := migration.Up
	if !up {
		fn = migration.Down
	}
	if err = fn(ctx, tx); err != nil {
		return fmt.Errorf("failed to %s migration %d: %w", action, migration.Version, err)
	}

	var record sq.Sqlizer
	if up {
		record = m.builder().Insert(MigrationsTable).
			Columns("version", "description").
			Values(migration.Version, migration.Description)
	} else {
		record = m.builder().Delete(MigrationsTable).Where(sq.Eq{"version": migration.Version})
	}
	query, args, err := record.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build bookkeeping query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction for migration %d: %w", migration.Version, err)
	}

	m.logger.Info("Finished migration", "action", action, "version", migration.Version, "description", migration.Description)
	return nil
}

func (m *Migrator) isApplied(ctx context.Context, tx *sql.Tx, version int) (bool, error) {
	query, args, err := m.builder().Select("COUNT(*)").
		From(MigrationsTable).
		Where(sq.Eq{"version": version}).
		ToSql()
	if err != nil {
		return false, err
	}

	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
