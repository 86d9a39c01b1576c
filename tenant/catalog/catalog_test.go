package catalog_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	qt "github.com/frankban/quicktest"
	"github.com/go-extras/go-kit/must"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stokaro/tenancy/config"
	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/tenant"
	"github.com/stokaro/tenancy/tenant/catalog"
)

var (
	fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	acmeID   = uuid.MustParse("6f1c1e4e-8d0a-4d43-9a8e-0f3c0c6d2b11")
)

var tenantColumns = []string{
	"id", "name", "subdomain", "schema_name", "status", "plan",
	"settings", "created_at", "updated_at", "expires_at",
}

func newCatalog(c *qt.C, dialect string) (*catalog.Catalog, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { db.Close() })
	cat := catalog.New(db, dialect, config.DefaultOptions()).WithClock(func() time.Time { return fixedNow })
	return cat, mock
}

func settingsJSON(plan tenant.Plan) string {
	return must.Must(tenant.DefaultSettings(plan).Value()).(string)
}

func tenantRow(id uuid.UUID, subdomain string, status tenant.Status, plan tenant.Plan) []driver.Value {
	return []driver.Value{
		id.String(), "Acme Inc", subdomain, "tenant_" + subdomain, string(status), string(plan),
		settingsJSON(plan), fixedNow, fixedNow, nil,
	}
}

func TestCreate_Defaults(t *testing.T) {
	c := qt.New(t)
	cat, mock := newCatalog(c, platform.Postgres)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT subdomain, schema_name, status FROM tenants WHERE \(\(subdomain = \$1 AND status <> \$2\) OR schema_name = \$3\) LIMIT 1`).
		WithArgs("acme", "deleted", "tenant_acme").
		WillReturnRows(sqlmock.NewRows([]string{"subdomain", "schema_name", "status"}))
	mock.ExpectExec(`INSERT INTO tenants \(id,name,subdomain,schema_name,status,plan,settings,created_at,updated_at,expires_at\) VALUES`).
		WithArgs(sqlmock.AnyArg(), "Acme", "acme", "tenant_acme", "active", "free",
			settingsJSON(tenant.PlanFree), fixedNow, fixedNow, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := cat.Create(context.Background(), catalog.Draft{Name: " Acme ", Subdomain: "ACME"})
	c.Assert(err, qt.IsNil)
	c.Assert(got.ID, qt.Not(qt.Equals), uuid.Nil)
	c.Assert(got.Name, qt.Equals, "Acme")
	c.Assert(got.Subdomain, qt.Equals, "acme")
	c.Assert(got.SchemaName, qt.Equals, "tenant_acme")
	c.Assert(got.Status, qt.Equals, tenant.StatusActive)
	c.Assert(got.Plan, qt.Equals, tenant.PlanFree)
	c.Assert(got.Settings.Limits, qt.Equals, tenant.Limits{MaxArticles: 100, MaxUsers: 3, MaxStorageMB: 1000})
	c.Assert(got.CreatedAt, qt.Equals, fixedNow.Truncate(time.Microsecond))
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestCreate_ValidationHappensBeforeStorage(t *testing.T) {
	tests := []struct {
		name  string
		draft catalog.Draft
		field string
	}{
		{"empty name", catalog.Draft{Name: "  ", Subdomain: "acme"}, "name"},
		{"reserved subdomain", catalog.Draft{Name: "Acme", Subdomain: "www"}, "subdomain"},
		{"short subdomain", catalog.Draft{Name: "Acme", Subdomain: "ab"}, "subdomain"},
		{"unknown plan", catalog.Draft{Name: "Acme", Subdomain: "acme", Plan: "gold"}, "plan"},
		{"created deleted", catalog.Draft{Name: "Acme", Subdomain: "acme", Status: tenant.StatusDeleted}, "status"},
		{"foreign schema", catalog.Draft{Name: "Acme", Subdomain: "acme", SchemaName: "public"}, "schema_name"},
		{
			"negative limit",
			catalog.Draft{Name: "Acme", Subdomain: "acme", Settings: &tenant.Settings{Limits: tenant.Limits{MaxArticles: -5}}},
			"settings.limits.max_articles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			cat, mock := newCatalog(c, platform.Postgres)

			_, err := cat.Create(context.Background(), tt.draft)
			var verr *tenant.ValidationError
			c.Assert(errors.As(err, &verr), qt.IsTrue, qt.Commentf("got %v", err))
			c.Assert(verr.Field, qt.Equals, tt.field)
			c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
		})
	}
}

func TestCreate_PrecheckConflict(t *testing.T) {
	tests := []struct {
		name     string
		existing []driver.Value
		field    string
	}{
		{"live subdomain", []driver.Value{"acme", "tenant_acme", "active"}, "subdomain"},
		{"schema of a deleted tenant", []driver.Value{"acme", "tenant_acme", "deleted"}, "schema_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			cat, mock := newCatalog(c, platform.Postgres)

			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT subdomain, schema_name, status FROM tenants`).
				WillReturnRows(sqlmock.NewRows([]string{"subdomain", "schema_name", "status"}).AddRow(tt.existing...))
			mock.ExpectRollback()

			_, err := cat.Create(context.Background(), catalog.Draft{Name: "Acme", Subdomain: "acme"})
			var cerr *tenant.ConflictError
			c.Assert(errors.As(err, &cerr), qt.IsTrue, qt.Commentf("got %v", err))
			c.Assert(cerr.Field, qt.Equals, tt.field)
			c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
		})
	}
}

func TestCreate_UniqueViolationBecomesConflict(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		err     error
		field   string
	}{
		{
			"postgres subdomain index",
			platform.Postgres,
			&pgconn.PgError{Code: "23505", ConstraintName: "uq_tenants_active_subdomain"},
			"subdomain",
		},
		{
			"postgres schema name",
			platform.Postgres,
			&pgconn.PgError{Code: "23505", ConstraintName: "uq_tenants_schema_name"},
			"schema_name",
		},
		{
			"mysql generated column",
			platform.MySQL,
			&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'acme' for key 'tenants.uq_tenants_active_subdomain'"},
			"subdomain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			cat, mock := newCatalog(c, tt.dialect)

			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT subdomain, schema_name, status FROM tenants`).
				WillReturnRows(sqlmock.NewRows([]string{"subdomain", "schema_name", "status"}))
			mock.ExpectExec(`INSERT INTO tenants`).WillReturnError(tt.err)
			mock.ExpectRollback()

			_, err := cat.Create(context.Background(), catalog.Draft{Name: "Acme", Subdomain: "acme"})
			var cerr *tenant.ConflictError
			c.Assert(errors.As(err, &cerr), qt.IsTrue, qt.Commentf("got %v", err))
			c.Assert(cerr.Field, qt.Equals, tt.field)
			c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
		})
	}
}

func TestGet_ReturnsDeletedTenants(t *testing.T) {
	c := qt.New(t)
	cat, mock := newCatalog(c, platform.Postgres)

	mock.ExpectQuery(`SELECT id, name, subdomain, schema_name, status, plan, settings, created_at, updated_at, expires_at FROM tenants WHERE id = \$1`).
		WithArgs(acmeID.String()).
		WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(tenantRow(acmeID, "acme", tenant.StatusDeleted, tenant.PlanPro)...))

	got, err := cat.Get(context.Background(), acmeID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.ID, qt.Equals, acmeID)
	c.Assert(got.IsDeleted(), qt.IsTrue)
	c.Assert(got.Settings.Limits.MaxUsers, qt.Equals, 10)
	c.Assert(got.ExpiresAt, qt.IsNil)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestGet_NotFound(t *testing.T) {
	c := qt.New(t)
	cat, mock := newCatalog(c, platform.Postgres)

	mock.ExpectQuery(`FROM tenants WHERE id = \$1`).WillReturnRows(sqlmock.NewRows(tenantColumns))

	_, err := cat.Get(context.Background(), acmeID)
	c.Assert(tenant.IsNotFound(err), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `tenant with id "6f1c1e4e-8d0a-4d43-9a8e-0f3c0c6d2b11" not found`)
}

func TestFindBySubdomain_ExcludesDeleted(t *testing.T) {
	c := qt.New(t)
	cat, mock := newCatalog(c, platform.MySQL)

	mock.ExpectQuery(`FROM tenants WHERE subdomain = \? AND status <> \?`).
		WithArgs("acme", "deleted").
		WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(tenantRow(acmeID, "acme", tenant.StatusSuspended, tenant.PlanFree)...))

	got, err := cat.FindBySubdomain(context.Background(), " Acme ")
	c.Assert(err, qt.IsNil)
	c.Assert(got.Status, qt.Equals, tenant.StatusSuspended)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestUpdate_RequiresElevatedAccess(t *testing.T) {
	suspended := tenant.StatusSuspended
	pro := tenant.PlanPro

	tests := []struct {
		name  string
		patch catalog.Patch
		field string
	}{
		{"status", catalog.Patch{Status: &suspended}, "status"},
		{"plan", catalog.Patch{Plan: &pro}, "plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			cat, mock := newCatalog(c, platform.Postgres)

			_, err := cat.Update(context.Background(), acmeID, tt.patch, catalog.AccessStandard)
			var perr *tenant.PermissionError
			c.Assert(errors.As(err, &perr), qt.IsTrue, qt.Commentf("got %v", err))
			c.Assert(perr.Field, qt.Equals, tt.field)
			c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
		})
	}
}

func TestUpdate_MergesSettings(t *testing.T) {
	c := qt.New(t)
	cat, mock := newCatalog(c, platform.Postgres)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tenants WHERE id = \$1 FOR UPDATE`).
		WithArgs(acmeID.String()).
		WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(tenantRow(acmeID, "acme", tenant.StatusActive, tenant.PlanFree)...))
	mock.ExpectExec(`UPDATE tenants SET name = \$1, status = \$2, plan = \$3, settings = \$4, expires_at = \$5, updated_at = \$6 WHERE id = \$7`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	name := "Acme Blog"
	got, err := cat.Update(context.Background(), acmeID, catalog.Patch{
		Name: &name,
		Settings: &tenant.SettingsPatch{
			Theme:    map[string]string{"accent": "teal"},
			Features: map[string]bool{"comments": false},
		},
	}, catalog.AccessStandard)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Name, qt.Equals, "Acme Blog")
	c.Assert(got.Settings.Theme, qt.DeepEquals, map[string]string{"name": "default", "accent": "teal"})
	c.Assert(got.Settings.Features["comments"], qt.IsFalse)
	c.Assert(got.Settings.Features["tags"], qt.IsTrue)
	c.Assert(got.Settings.Limits, qt.Equals, tenant.LimitsForPlan(tenant.PlanFree))
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestUpdate_PlanChangeRederivesLimits(t *testing.T) {
	maxUsers := 25

	tests := []struct {
		name     string
		settings *tenant.SettingsPatch
		want     tenant.Limits
	}{
		{"plan defaults", nil, tenant.LimitsForPlan(tenant.PlanPro)},
		{
			"explicit limits win",
			&tenant.SettingsPatch{Limits: &tenant.LimitsPatch{MaxUsers: &maxUsers}},
			tenant.Limits{MaxArticles: 100, MaxUsers: 25, MaxStorageMB: 1000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			cat, mock := newCatalog(c, platform.Postgres)

			mock.ExpectBegin()
			mock.ExpectQuery(`FOR UPDATE`).
				WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(tenantRow(acmeID, "acme", tenant.StatusActive, tenant.PlanFree)...))
			mock.ExpectExec(`UPDATE tenants`).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			pro := tenant.PlanPro
			got, err := cat.Update(context.Background(), acmeID, catalog.Patch{Plan: &pro, Settings: tt.settings}, catalog.AccessElevated)
			c.Assert(err, qt.IsNil)
			c.Assert(got.Plan, qt.Equals, tenant.PlanPro)
			c.Assert(got.Settings.Limits, qt.Equals, tt.want)
			c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
		})
	}
}

func TestUpdate_DeletedTenant(t *testing.T) {
	c := qt.New(t)

	c.Run("plain update is not found", func(c *qt.C) {
		cat, mock := newCatalog(c, platform.Postgres)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(tenantRow(acmeID, "acme", tenant.StatusDeleted, tenant.PlanFree)...))
		mock.ExpectRollback()

		name := "Other"
		_, err := cat.Update(context.Background(), acmeID, catalog.Patch{Name: &name}, catalog.AccessElevated)
		c.Assert(tenant.IsNotFound(err), qt.IsTrue)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("deleting again is a no-op", func(c *qt.C) {
		cat, mock := newCatalog(c, platform.Postgres)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(tenantRow(acmeID, "acme", tenant.StatusDeleted, tenant.PlanFree)...))
		mock.ExpectRollback()

		deleted := tenant.StatusDeleted
		got, err := cat.Update(context.Background(), acmeID, catalog.Patch{Status: &deleted}, catalog.AccessElevated)
		c.Assert(err, qt.IsNil)
		c.Assert(got.Status, qt.Equals, tenant.StatusDeleted)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("deleting again with other changes is not found", func(c *qt.C) {
		cat, mock := newCatalog(c, platform.Postgres)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(tenantRow(acmeID, "acme", tenant.StatusDeleted, tenant.PlanFree)...))
		mock.ExpectRollback()

		deleted := tenant.StatusDeleted
		name := "Other"
		_, err := cat.Update(context.Background(), acmeID, catalog.Patch{Status: &deleted, Name: &name}, catalog.AccessElevated)
		c.Assert(tenant.IsNotFound(err), qt.IsTrue)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("elevated status change restores", func(c *qt.C) {
		cat, mock := newCatalog(c, platform.Postgres)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(tenantRow(acmeID, "acme", tenant.StatusDeleted, tenant.PlanFree)...))
		mock.ExpectExec(`UPDATE tenants`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		active := tenant.StatusActive
		got, err := cat.Update(context.Background(), acmeID, catalog.Patch{Status: &active}, catalog.AccessElevated)
		c.Assert(err, qt.IsNil)
		c.Assert(got.Status, qt.Equals, tenant.StatusActive)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("restoring onto a taken subdomain conflicts", func(c *qt.C) {
		cat, mock := newCatalog(c, platform.Postgres)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(tenantRow(acmeID, "acme", tenant.StatusDeleted, tenant.PlanFree)...))
		mock.ExpectExec(`UPDATE tenants`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_tenants_active_subdomain"})
		mock.ExpectRollback()

		active := tenant.StatusActive
		_, err := cat.Update(context.Background(), acmeID, catalog.Patch{Status: &active}, catalog.AccessElevated)
		c.Assert(tenant.IsConflict(err), qt.IsTrue)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})
}

func TestUpdate_ExpiryAndClear(t *testing.T) {
	c := qt.New(t)
	cat, mock := newCatalog(c, platform.Postgres)

	row := tenantRow(acmeID, "acme", tenant.StatusTrial, tenant.PlanFree)
	row[9] = fixedNow.Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(row...))
	mock.ExpectExec(`UPDATE tenants`).
		WithArgs("Acme Inc", "trial", "free", sqlmock.AnyArg(), nil, fixedNow.Truncate(time.Microsecond), acmeID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := cat.Update(context.Background(), acmeID, catalog.Patch{ClearExpiry: true}, catalog.AccessStandard)
	c.Assert(err, qt.IsNil)
	c.Assert(got.ExpiresAt, qt.IsNil)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestSoftDelete(t *testing.T) {
	c := qt.New(t)

	c.Run("marks the row deleted", func(c *qt.C) {
		cat, mock := newCatalog(c, platform.Postgres)
		mock.ExpectExec(`UPDATE tenants SET status = \$1, updated_at = \$2 WHERE id = \$3 AND status <> \$4`).
			WithArgs("deleted", fixedNow.Truncate(time.Microsecond), acmeID.String(), "deleted").
			WillReturnResult(sqlmock.NewResult(0, 1))

		c.Assert(cat.SoftDelete(context.Background(), acmeID), qt.IsNil)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("is idempotent", func(c *qt.C) {
		cat, mock := newCatalog(c, platform.Postgres)
		mock.ExpectExec(`UPDATE tenants`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM tenants WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(tenantRow(acmeID, "acme", tenant.StatusDeleted, tenant.PlanFree)...))

		c.Assert(cat.SoftDelete(context.Background(), acmeID), qt.IsNil)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("unknown tenant", func(c *qt.C) {
		cat, mock := newCatalog(c, platform.Postgres)
		mock.ExpectExec(`UPDATE tenants`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM tenants WHERE id = \$1`).WillReturnRows(sqlmock.NewRows(tenantColumns))

		err := cat.SoftDelete(context.Background(), acmeID)
		c.Assert(tenant.IsNotFound(err), qt.IsTrue)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})
}

func TestList(t *testing.T) {
	betaID := uuid.MustParse("0d7e0f52-4b8e-4f0e-bd2c-0e7a6c1f9a22")

	tests := []struct {
		name      string
		filter    catalog.Filter
		page      catalog.Page
		countSQL  string
		countArgs []driver.Value
		listSQL   string
	}{
		{
			name:      "defaults hide deleted tenants",
			countSQL:  `SELECT COUNT\(\*\) FROM tenants WHERE \(status <> \$1\)$`,
			countArgs: []driver.Value{"deleted"},
			listSQL:   `FROM tenants WHERE \(status <> \$1\) ORDER BY created_at, id LIMIT 50 OFFSET 0$`,
		},
		{
			name:      "include deleted",
			filter:    catalog.Filter{IncludeDeleted: true},
			page:      catalog.Page{Limit: 1000, Offset: 10},
			countSQL:  `SELECT COUNT\(\*\) FROM tenants WHERE \(1=1\)$`,
			countArgs: []driver.Value{},
			listSQL:   `ORDER BY created_at, id LIMIT 500 OFFSET 10$`,
		},
		{
			name:      "statuses plan and search",
			filter:    catalog.Filter{Statuses: []tenant.Status{tenant.StatusActive, tenant.StatusTrial}, Plan: tenant.PlanPro, Search: "Ac_"},
			page:      catalog.Page{Limit: 2},
			countSQL:  `WHERE \(status IN \(\$1,\$2\) AND plan = \$3 AND \(LOWER\(name\) LIKE \$4 OR subdomain LIKE \$5\)\)$`,
			countArgs: []driver.Value{"active", "trial", "pro", `%ac\_%`, `%ac\_%`},
			listSQL:   `LIMIT 2 OFFSET 0$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			cat, mock := newCatalog(c, platform.Postgres)

			count := mock.ExpectQuery(tt.countSQL)
			if len(tt.countArgs) > 0 {
				count.WithArgs(tt.countArgs...)
			}
			count.WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
			mock.ExpectQuery(tt.listSQL).WillReturnRows(sqlmock.NewRows(tenantColumns).
				AddRow(tenantRow(acmeID, "acme", tenant.StatusActive, tenant.PlanPro)...).
				AddRow(tenantRow(betaID, "beta", tenant.StatusTrial, tenant.PlanPro)...))

			items, total, err := cat.List(context.Background(), tt.filter, tt.page)
			c.Assert(err, qt.IsNil)
			c.Assert(total, qt.Equals, 7)
			c.Assert(items, qt.HasLen, 2)
			c.Assert(items[1].Subdomain, qt.Equals, "beta")
			c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
		})
	}
}

func TestList_RejectsBadFilter(t *testing.T) {
	c := qt.New(t)
	cat, _ := newCatalog(c, platform.Postgres)

	_, _, err := cat.List(context.Background(), catalog.Filter{Statuses: []tenant.Status{"gone"}}, catalog.Page{})
	c.Assert(err, qt.ErrorMatches, `invalid status: unknown status "gone"`)

	_, _, err = cat.List(context.Background(), catalog.Filter{}, catalog.Page{Offset: -1})
	c.Assert(tenant.IsValidation(err), qt.IsTrue)
}
