package migrations_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/migration/migrator"
	"github.com/stokaro/tenancy/tenant/catalog/migrations"
)

func TestFS(t *testing.T) {
	for _, dialect := range []string{platform.Postgres, platform.MySQL, platform.MariaDB} {
		t.Run(dialect, func(t *testing.T) {
			c := qt.New(t)

			fsys, err := migrations.FS(dialect)
			c.Assert(err, qt.IsNil)

			provider, err := migrator.NewFSMigrationProvider(fsys)
			c.Assert(err, qt.IsNil)

			all := provider.Migrations()
			c.Assert(all, qt.HasLen, 2)
			c.Assert(all[0].Version, qt.Equals, 1)
			c.Assert(all[0].Description, qt.Equals, "Create Tenants")
			c.Assert(all[1].Description, qt.Equals, "Index Tenant Plan")
		})
	}
}

func TestFS_UnsupportedDialect(t *testing.T) {
	c := qt.New(t)

	_, err := migrations.FS("oracle")
	c.Assert(err, qt.ErrorMatches, `unsupported dialect: "oracle"`)
}
