package migrator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// MigrationFile is the parsed name of a migration script such as
// 0000000001_create_tenants.up.sql.
type MigrationFile struct {
	Version   int
	Name      string
	Direction string
}

// ParseMigrationFileName parses a migration file name. The description is
// derived from the name part: "create_tenants" becomes "Create Tenants".
func ParseMigrationFileName(filename string) (*MigrationFile, error) {
	m := migrationFilePattern.FindStringSubmatch(filename)
	if m == nil {
		return nil, fmt.Errorf("invalid migration file name: %s", filename)
	}

	version, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("invalid migration version in %s: %w", filename, err)
	}
	if version <= 0 {
		return nil, fmt.Errorf("migration version must be positive: %s", filename)
	}

	return &MigrationFile{
		Version:   version,
		Name:      cases.Title(language.English).String(strings.ReplaceAll(m[2], "_", " ")),
		Direction: m[3],
	}, nil
}

var migrationNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// FormatMigrationFileName is the inverse of ParseMigrationFileName for a
// snake_case name.
func FormatMigrationFileName(version int, name, direction string) string {
	return fmt.Sprintf("%010d_%s.%s.sql", version, name, direction)
}

// EmptyMigration is a pair of skeleton scripts written to disk.
type EmptyMigration struct {
	Version  int
	UpFile   string
	DownFile string
}

// CreateEmptyMigration writes an up and a down script named name into dir.
// The version follows the highest version already present in dir.
func CreateEmptyMigration(dir, name string) (*EmptyMigration, error) {
	name = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	if !migrationNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid migration name %q: use lowercase letters, digits and underscores", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migration directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}
	version := 0
	for _, e := range entries {
		if mf, err := ParseMigrationFileName(e.Name()); err == nil && mf.Version > version {
			version = mf.Version
		}
	}
	version++

	m := &EmptyMigration{
		Version:  version,
		UpFile:   filepath.Join(dir, FormatMigrationFileName(version, name, "up")),
		DownFile: filepath.Join(dir, FormatMigrationFileName(version, name, "down")),
	}
	for path, direction := range map[string]string{m.UpFile: "up", m.DownFile: "down"} {
		body := fmt.Sprintf("-- Migration %d (%s): %s\n", version, direction, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return m, nil
}
