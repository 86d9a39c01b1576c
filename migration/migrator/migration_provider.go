package migrator

import (
	"cmp"
	"fmt"
	"io/fs"
	"maps"
	"slices"
)

// MigrationProvider provides a list of migrations
type MigrationProvider interface {
	// Migrations provides a list of migrations sorted by version in ascending order
	Migrations() []*Migration
}

// RegisteredMigrationProvider is a simple in-memory implementation of MigrationProvider
type RegisteredMigrationProvider struct {
	migrations []*Migration
	sorted     bool
}

// NewRegisteredMigrationProvider creates an in-memory provider. The
// migrations are sorted by version when read through Migrations.
func NewRegisteredMigrationProvider(migrations ...*Migration) *RegisteredMigrationProvider {
	return &RegisteredMigrationProvider{
		migrations: migrations,
	}
}

// Register adds a migration to the provider
func (p *RegisteredMigrationProvider) Register(migration *Migration) {
	p.migrations = append(p.migrations, migration)
	p.sorted = false
}

// Migrations returns the list of migrations sorted by version in ascending order
func (p *RegisteredMigrationProvider) Migrations() []*Migration {
	if !p.sorted {
		sortMigrations(p.migrations)
		p.sorted = true
	}
	return p.migrations
}

// FSMigrationProvider loads migrations from NNNNNNNNNN_name.up.sql and
// NNNNNNNNNN_name.down.sql files. Files that do not follow the naming
// convention are ignored.
type FSMigrationProvider struct {
	fsys       fs.FS
	migrations []*Migration
}

// NewFSMigrationProvider scans fsys and fails if it cannot be read or if a
// migration lacks its up or down file.
func NewFSMigrationProvider(fsys fs.FS) (*FSMigrationProvider, error) {
	p := &FSMigrationProvider{fsys: fsys}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

// Migrations returns the loaded migrations sorted by version.
func (p *FSMigrationProvider) Migrations() []*Migration {
	return p.migrations
}

func (p *FSMigrationProvider) load() error {
	byVersion := make(map[int]*Migration)

	err := fs.WalkDir(p.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		file, err := ParseMigrationFileName(d.Name())
		if err != nil {
			return nil
		}

		migration, ok := byVersion[file.Version]
		if !ok {
			migration = &Migration{Version: file.Version, Description: file.Name}
			byVersion[file.Version] = migration
		}

		switch file.Direction {
		case "up":
			migration.Up = MigrationFuncFromSQLFilename(path, p.fsys)
		case "down":
			migration.Down = MigrationFuncFromSQLFilename(path, p.fsys)
		default:
			return fmt.Errorf("invalid migration direction: %s", file.Direction)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan migrations directory: %w", err)
	}

	var incomplete []int
	for version, migration := range byVersion {
		if migration.Up == nil || migration.Down == nil {
			incomplete = append(incomplete, version)
		}
	}
	if len(incomplete) > 0 {
		slices.Sort(incomplete)
		return fmt.Errorf("incomplete migrations found (missing up or down files): %v", incomplete)
	}

	p.migrations = slices.Collect(maps.Values(byVersion))
	sortMigrations(p.migrations)
	return nil
}

func sortMigrations(migrations []*Migration) {
	slices.SortFunc(migrations, func(a, b *Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})
}
