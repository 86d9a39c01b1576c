// Package migrations embeds the versioned SQL that creates the shared tenant
// catalog, one directory per dialect.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/stokaro/tenancy/core/platform"
)

//go:embed postgres/*.sql mysql/*.sql
var files embed.FS

// FS returns the migration scripts for the dialect. MariaDB shares the MySQL
// scripts.
func FS(dialect string) (fs.FS, error) {
	dir := ""
	switch platform.NormalizeDialect(dialect) {
	case platform.Postgres:
		dir = "postgres"
	case platform.MySQL, platform.MariaDB:
		dir = "mysql"
	default:
		return nil, fmt.Errorf("unsupported dialect: %q", dialect)
	}
	return fs.Sub(files, dir)
}
