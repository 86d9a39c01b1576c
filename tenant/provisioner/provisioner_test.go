package provisioner_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	qt "github.com/frankban/quicktest"
	"github.com/go-extras/go-kit/must"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/stokaro/tenancy/config"
	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/tenant"
	"github.com/stokaro/tenancy/tenant/catalog"
	"github.com/stokaro/tenancy/tenant/provisioner"
	"github.com/stokaro/tenancy/tenant/template"
)

var (
	fixedNow  = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	adminHash = string(must.Must(bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)))
)

func newProvisioner(c *qt.C, dialect string) (*provisioner.Provisioner, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { db.Close() })
	cat := catalog.New(db, dialect, config.DefaultOptions()).WithClock(func() time.Time { return fixedNow })
	return provisioner.New(db, cat), mock
}

func acmeRequest() provisioner.Request {
	return provisioner.Request{
		Name:              "Acme",
		Subdomain:         "acme",
		Plan:              tenant.PlanFree,
		AdminEmail:        "Admin@Acme.test",
		AdminPasswordHash: adminHash,
	}
}

func expectAvailable(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT subdomain, schema_name, status FROM tenants`).
		WillReturnRows(sqlmock.NewRows([]string{"subdomain", "schema_name", "status"}))
}

func expectStatements(mock sqlmock.Sqlmock, statements []string) {
	for _, stmt := range statements {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
}

func TestProvision_Postgres(t *testing.T) {
	c := qt.New(t)
	p, mock := newProvisioner(c, platform.Postgres)
	statements := must.Must(template.Render(platform.Postgres, "tenant_acme"))

	mock.ExpectBegin()
	expectAvailable(mock)
	mock.ExpectExec(`INSERT INTO tenants`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectStatements(mock, statements)
	mock.ExpectQuery(`INSERT INTO "tenant_acme"\."users" \(tenant_id,email,password_hash,name,role,status,created_at,updated_at\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6,\$7,\$8\) RETURNING id`).
		WithArgs(sqlmock.AnyArg(), "admin@acme.test", adminHash, "Administrator", "admin", "active", fixedNow, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	res, err := p.Provision(context.Background(), acmeRequest())
	c.Assert(err, qt.IsNil)
	c.Assert(res.Tenant.SchemaName, qt.Equals, "tenant_acme")
	c.Assert(res.Tenant.Settings.Limits, qt.Equals, tenant.Limits{MaxArticles: 100, MaxUsers: 3, MaxStorageMB: 1000})
	c.Assert(res.AdminUser.ID, qt.Equals, int64(1))
	c.Assert(res.AdminUser.Role, qt.Equals, tenant.RoleAdmin)
	c.Assert(res.AdminUser.Status, qt.Equals, tenant.UserActive)
	c.Assert(res.AdminUser.TenantID, qt.Equals, res.Tenant.ID)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestProvision_ValidationTouchesNothing(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *provisioner.Request)
		field  string
	}{
		{"bad email", func(r *provisioner.Request) { r.AdminEmail = "not-an-email" }, "admin_email"},
		{"empty hash", func(r *provisioner.Request) { r.AdminPasswordHash = "" }, "admin_password_hash"},
		{"plain password", func(r *provisioner.Request) { r.AdminPasswordHash = "hunter2" }, "admin_password_hash"},
		{"bad subdomain", func(r *provisioner.Request) { r.Subdomain = "-acme" }, "subdomain"},
		{"reserved subdomain", func(r *provisioner.Request) { r.Subdomain = "admin" }, "subdomain"},
		{"bad plan", func(r *provisioner.Request) { r.Plan = "gold" }, "plan"},
		{"empty name", func(r *provisioner.Request) { r.Name = "" }, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			p, mock := newProvisioner(c, platform.Postgres)

			req := acmeRequest()
			tt.modify(&req)
			_, err := p.Provision(context.Background(), req)

			var verr *tenant.ValidationError
			c.Assert(errors.As(err, &verr), qt.IsTrue, qt.Commentf("got %v", err))
			c.Assert(verr.Field, qt.Equals, tt.field)
			c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
		})
	}
}

func TestProvision_PostgresConflicts(t *testing.T) {
	c := qt.New(t)

	c.Run("live subdomain found by the precheck", func(c *qt.C) {
		p, mock := newProvisioner(c, platform.Postgres)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT subdomain, schema_name, status FROM tenants`).
			WillReturnRows(sqlmock.NewRows([]string{"subdomain", "schema_name", "status"}).AddRow("acme", "tenant_acme", "active"))
		mock.ExpectRollback()

		_, err := p.Provision(context.Background(), acmeRequest())
		c.Assert(err, qt.ErrorMatches, `tenant with subdomain "acme" already exists`)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("concurrent insert hits the unique index", func(c *qt.C) {
		p, mock := newProvisioner(c, platform.Postgres)
		mock.ExpectBegin()
		expectAvailable(mock)
		mock.ExpectExec(`INSERT INTO tenants`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_tenants_active_subdomain"})
		mock.ExpectRollback()

		_, err := p.Provision(context.Background(), acmeRequest())
		c.Assert(tenant.IsConflict(err), qt.IsTrue)
		c.Assert(tenant.IsProvisioning(err), qt.IsFalse)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("schema left over from elsewhere", func(c *qt.C) {
		p, mock := newProvisioner(c, platform.Postgres)
		mock.ExpectBegin()
		expectAvailable(mock)
		mock.ExpectExec(`INSERT INTO tenants`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`CREATE SCHEMA "tenant_acme"`).WillReturnError(&pgconn.PgError{Code: "42P06"})
		mock.ExpectRollback()

		_, err := p.Provision(context.Background(), acmeRequest())
		c.Assert(err, qt.ErrorMatches, `tenant with schema_name "tenant_acme" already exists`)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})
}

func TestProvision_PostgresFailureRollsBack(t *testing.T) {
	c := qt.New(t)
	p, mock := newProvisioner(c, platform.Postgres)
	statements := must.Must(template.Render(platform.Postgres, "tenant_acme"))
	cause := errors.New("disk full")

	mock.ExpectBegin()
	expectAvailable(mock)
	mock.ExpectExec(`INSERT INTO tenants`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectStatements(mock, statements[:3])
	mock.ExpectExec(regexp.QuoteMeta(statements[3])).WillReturnError(cause)
	mock.ExpectRollback()

	_, err := p.Provision(context.Background(), acmeRequest())

	var perr *tenant.ProvisioningError
	c.Assert(errors.As(err, &perr), qt.IsTrue)
	c.Assert(perr.Step, qt.Equals, provisioner.StepTables)
	c.Assert(perr.Subdomain, qt.Equals, "acme")
	c.Assert(errors.Is(err, cause), qt.IsTrue)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestProvision_AdminFailureRollsBack(t *testing.T) {
	c := qt.New(t)
	p, mock := newProvisioner(c, platform.Postgres)
	statements := must.Must(template.Render(platform.Postgres, "tenant_acme"))

	mock.ExpectBegin()
	expectAvailable(mock)
	mock.ExpectExec(`INSERT INTO tenants`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectStatements(mock, statements)
	mock.ExpectQuery(`INSERT INTO "tenant_acme"\."users"`).WillReturnError(errors.New("check constraint"))
	mock.ExpectRollback()

	_, err := p.Provision(context.Background(), acmeRequest())
	c.Assert(err, qt.ErrorMatches, `provisioning tenant "acme" failed at admin: check constraint`)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestProvision_CancelledContext(t *testing.T) {
	c := qt.New(t)
	p, mock := newProvisioner(c, platform.Postgres)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Provision(ctx, acmeRequest())
	c.Assert(tenant.IsProvisioning(err), qt.IsTrue)
	c.Assert(errors.Is(err, context.Canceled), qt.IsTrue)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestProvision_MySQL(t *testing.T) {
	c := qt.New(t)
	p, mock := newProvisioner(c, platform.MySQL)
	statements := must.Must(template.Render(platform.MySQL, "tenant_acme"))
	c.Assert(statements[0], qt.Matches, "CREATE DATABASE `tenant_acme`.*")

	expectAvailable(mock)
	expectStatements(mock, statements)
	mock.ExpectExec("INSERT INTO `tenant_acme`\\.`users`").WillReturnResult(sqlmock.NewResult(1, 1))
	expectAvailable(mock)
	mock.ExpectExec(`INSERT INTO tenants`).WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := p.Provision(context.Background(), acmeRequest())
	c.Assert(err, qt.IsNil)
	c.Assert(res.AdminUser.ID, qt.Equals, int64(1))
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestProvision_MySQLCompensation(t *testing.T) {
	c := qt.New(t)
	statements := must.Must(template.Render(platform.MySQL, "tenant_acme"))

	c.Run("drops the database after a table failure", func(c *qt.C) {
		p, mock := newProvisioner(c, platform.MySQL)
		expectAvailable(mock)
		expectStatements(mock, statements[:2])
		mock.ExpectExec(regexp.QuoteMeta(statements[2])).WillReturnError(errors.New("lost connection"))
		mock.ExpectExec("DROP DATABASE IF EXISTS `tenant_acme`").WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := p.Provision(context.Background(), acmeRequest())
		var perr *tenant.ProvisioningError
		c.Assert(errors.As(err, &perr), qt.IsTrue)
		c.Assert(perr.Step, qt.Equals, provisioner.StepTables)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("late catalog conflict still drops the database", func(c *qt.C) {
		p, mock := newProvisioner(c, platform.MySQL)
		expectAvailable(mock)
		expectStatements(mock, statements)
		mock.ExpectExec("INSERT INTO `tenant_acme`").WillReturnResult(sqlmock.NewResult(1, 1))
		expectAvailable(mock)
		mock.ExpectExec(`INSERT INTO tenants`).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'acme' for key 'tenants.uq_tenants_active_subdomain'"})
		mock.ExpectExec("DROP DATABASE IF EXISTS `tenant_acme`").WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := p.Provision(context.Background(), acmeRequest())
		c.Assert(tenant.IsConflict(err), qt.IsTrue)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("reports both causes when the drop fails", func(c *qt.C) {
		p, mock := newProvisioner(c, platform.MySQL)
		expectAvailable(mock)
		expectStatements(mock, statements)
		mock.ExpectExec("INSERT INTO `tenant_acme`").WillReturnError(errors.New("table full"))
		mock.ExpectExec("DROP DATABASE").WillReturnError(errors.New("access denied"))

		_, err := p.Provision(context.Background(), acmeRequest())
		c.Assert(tenant.IsProvisioning(err), qt.IsTrue)
		c.Assert(err, qt.ErrorMatches, `(?s).*table full.*compensation failed: failed to drop schema tenant_acme: access denied.*`)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})

	c.Run("existing database is not dropped", func(c *qt.C) {
		p, mock := newProvisioner(c, platform.MySQL)
		expectAvailable(mock)
		mock.ExpectExec("CREATE DATABASE").WillReturnError(&mysql.MySQLError{Number: 1007, Message: "database exists"})

		_, err := p.Provision(context.Background(), acmeRequest())
		c.Assert(err, qt.ErrorMatches, `tenant with schema_name "tenant_acme" already exists`)
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})
}

func TestVerify(t *testing.T) {
	c := qt.New(t)

	c.Run("missing schema", func(c *qt.C) {
		p, mock := newProvisioner(c, platform.Postgres)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema.schemata`).
			WithArgs("tenant_ghost").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		report, err := p.Verify(context.Background(), "tenant_ghost")
		c.Assert(err, qt.IsNil)
		c.Assert(report.Exists, qt.IsFalse)
		c.Assert(report.Complete(), qt.IsFalse)
		c.Assert(report.MissingTables, qt.DeepEquals, template.TableNames())
	})

	c.Run("missing and extra tables", func(c *qt.C) {
		p, mock := newProvisioner(c, platform.Postgres)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema.schemata`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT table_name FROM information_schema.tables`).
			WithArgs("tenant_acme", "BASE TABLE").
			WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
				AddRow("article_tags").AddRow("articles").AddRow("categories").AddRow("comments").
				AddRow("legacy_posts").AddRow("tags").AddRow("users"))

		report, err := p.Verify(context.Background(), "tenant_acme")
		c.Assert(err, qt.IsNil)
		c.Assert(report.Complete(), qt.IsFalse)
		c.Assert(report.MissingTables, qt.DeepEquals, []string{"media"})
		c.Assert(report.ExtraTables, qt.DeepEquals, []string{"legacy_posts"})
		c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
	})
}
