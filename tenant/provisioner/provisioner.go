// Package provisioner creates tenants: the catalog row, the tenant schema
// with every template table, and the first administrator account.
//
// On PostgreSQL all of it happens in one transaction, so a failure leaves
// nothing behind. MySQL commits implicitly on DDL; there the provisioner
// writes the catalog row last and drops the database it created when a later
// step fails.
package provisioner

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/crypto/bcrypt"

	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/core/sqlutil"
	"github.com/stokaro/tenancy/dbschema"
	"github.com/stokaro/tenancy/tenant"
	"github.com/stokaro/tenancy/tenant/catalog"
	"github.com/stokaro/tenancy/tenant/template"
)

// Provisioning steps reported in tenant.ProvisioningError.
const (
	StepPrepare = "prepare"
	StepBegin   = "begin"
	StepCatalog = "catalog"
	StepSchema  = "schema"
	StepTables  = "tables"
	StepAdmin   = "admin"
	StepCommit  = "commit"
)

// DefaultAdminName is used when a request does not name the administrator.
const DefaultAdminName = "Administrator"

// Request describes a tenant to provision.
type Request struct {
	Name      string
	Subdomain string
	Plan      tenant.Plan
	// Settings overrides the plan's default settings.
	Settings *tenant.Settings

	AdminEmail string
	// AdminPasswordHash is a bcrypt hash; plain passwords are never accepted.
	AdminPasswordHash string
	AdminName         string
}

// Validate checks the administrator part of the request. The tenant part is
// checked by the catalog.
func (r *Request) Validate() error {
	if err := tenant.ValidateEmail(r.AdminEmail); err != nil {
		return err
	}
	if r.AdminPasswordHash == "" {
		return &tenant.ValidationError{Field: "admin_password_hash", Reason: "must not be empty"}
	}
	if _, err := bcrypt.Cost([]byte(r.AdminPasswordHash)); err != nil {
		return &tenant.ValidationError{Field: "admin_password_hash", Reason: "must be a bcrypt hash"}
	}
	if len(r.AdminName) > tenant.MaxNameLength {
		return &tenant.ValidationError{Field: "admin_name", Reason: fmt.Sprintf("must be at most %d characters", tenant.MaxNameLength)}
	}
	return nil
}

func (r *Request) adminName() string {
	if name := strings.TrimSpace(r.AdminName); name != "" {
		return name
	}
	return DefaultAdminName
}

// Result is a provisioned tenant and its administrator.
type Result struct {
	Tenant    *tenant.Tenant `json:"tenant"`
	AdminUser *tenant.User   `json:"admin_user"`
}

// Provisioner creates tenants.
type Provisioner struct {
	db      *sql.DB
	catalog *catalog.Catalog
	dialect string
	logger  *slog.Logger
}

// New creates a provisioner writing through db. The catalog must use the
// same database.
func New(db *sql.DB, cat *catalog.Catalog) *Provisioner {
	return &Provisioner{
		db:      db,
		catalog: cat,
		dialect: cat.Dialect(),
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger for the provisioner
func (p *Provisioner) WithLogger(l *slog.Logger) *Provisioner {
	tmp := *p
	tmp.logger = l
	return &tmp
}

// plan is everything computed before the first write.
type plan struct {
	req        Request
	tenant     *tenant.Tenant
	statements []string
}

// Provision creates the tenant described by req.
//
// It returns a ValidationError for malformed input before touching the
// database, a ConflictError when the subdomain or schema name is taken, and
// a ProvisioningError for any other failure. In every error case neither the
// catalog row nor the schema exists afterwards.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := p.catalog.Build(catalog.Draft{
		Name:      req.Name,
		Subdomain: req.Subdomain,
		Plan:      req.Plan,
		Settings:  req.Settings,
	})
	if err != nil {
		return nil, err
	}

	statements, err := template.Render(p.dialect, t.SchemaName)
	if err != nil {
		return nil, &tenant.ProvisioningError{Subdomain: t.Subdomain, Step: StepPrepare, Err: err}
	}

	if timeout := p.catalog.Options().ProvisionTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	pl := &plan{req: req, tenant: t, statements: statements}
	logger := p.logger.With("subdomain", t.Subdomain, "schema", t.SchemaName)
	logger.Info("Provisioning tenant", "plan", t.Plan, "dialect", p.dialect)

	var result *Result
	if platform.SupportsTransactionalDDL(p.dialect) {
		result, err = p.provisionInTx(ctx, pl)
	} else {
		result, err = p.provisionCompensated(ctx, pl, logger)
	}
	if err != nil {
		logger.Error("Provisioning failed", "error", err)
		return nil, err
	}

	logger.Info("Tenant provisioned", "tenant", t.ID, "admin", result.AdminUser.ID)
	return result, nil
}

func (p *Provisioner) provisionInTx(ctx context.Context, pl *plan) (*Result, error) {
	t := pl.tenant
	fail := func(step string, err error) (*Result, error) {
		return nil, &tenant.ProvisioningError{Subdomain: t.Subdomain, Step: step, Err: err}
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(StepBegin, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := p.catalog.Insert(ctx, tx, t); err != nil {
		if tenant.IsConflict(err) {
			return nil, err
		}
		return fail(StepCatalog, err)
	}

	if _, err := tx.ExecContext(ctx, pl.statements[0]); err != nil {
		if dbschema.IsDuplicateSchema(err) {
			return nil, &tenant.ConflictError{Field: "schema_name", Value: t.SchemaName}
		}
		return fail(StepSchema, err)
	}
	for _, stmt := range pl.statements[1:] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fail(StepTables, err)
		}
	}

	admin := p.newAdmin(pl)
	query, args, err := p.adminInsert(pl, admin).Suffix("RETURNING id").ToSql()
	if err != nil {
		return fail(StepAdmin, err)
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&admin.ID); err != nil {
		return fail(StepAdmin, err)
	}

	if err := tx.Commit(); err != nil {
		if dbschema.IsUniqueViolation(err) {
			return nil, &tenant.ConflictError{Field: "subdomain", Value: t.Subdomain}
		}
		return fail(StepCommit, err)
	}
	return &Result{Tenant: t, AdminUser: admin}, nil
}

func (p *Provisioner) newAdmin(pl *plan) *tenant.User {
	return &tenant.User{
		TenantID:  pl.tenant.ID,
		Email:     strings.ToLower(pl.req.AdminEmail),
		Name:      pl.req.adminName(),
		Role:      tenant.RoleAdmin,
		Status:    tenant.UserActive,
		CreatedAt: pl.tenant.CreatedAt,
	}
}

func (p *Provisioner) adminInsert(pl *plan, admin *tenant.User) sq.InsertBuilder {
	t := pl.tenant
	return sqlutil.StatementBuilder(p.dialect).
		Insert(sqlutil.QualifiedName(p.dialect, t.SchemaName, template.TableUsers)).
		Columns("tenant_id", "email", "password_hash", "name", "role", "status", "created_at", "updated_at").
		Values(t.ID.String(), admin.Email, pl.req.AdminPasswordHash, admin.Name, string(admin.Role), string(admin.Status),
			admin.CreatedAt, admin.CreatedAt)
}
