package provisioner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stokaro/tenancy/core/ast"
	"github.com/stokaro/tenancy/core/renderer"
	"github.com/stokaro/tenancy/dbschema"
	"github.com/stokaro/tenancy/tenant"
)

// provisionCompensated runs the provisioning steps for dialects whose DDL
// commits implicitly. The catalog row is written last, so a tenant is only
// visible once its database is complete. Failures after the database was
// created drop it again.
func (p *Provisioner) provisionCompensated(ctx context.Context, pl *plan, logger *slog.Logger) (*Result, error) {
	t := pl.tenant

	if err := p.catalog.CheckAvailable(ctx, p.db, t.Subdomain, t.SchemaName); err != nil {
		if tenant.IsConflict(err) {
			return nil, err
		}
		return nil, &tenant.ProvisioningError{Subdomain: t.Subdomain, Step: StepCatalog, Err: err}
	}

	if _, err := p.db.ExecContext(ctx, pl.statements[0]); err != nil {
		// The database belongs to someone else; leave it alone.
		if dbschema.IsDuplicateSchema(err) {
			return nil, &tenant.ConflictError{Field: "schema_name", Value: t.SchemaName}
		}
		return nil, &tenant.ProvisioningError{Subdomain: t.Subdomain, Step: StepSchema, Err: err}
	}

	fail := func(step string, cause error) (*Result, error) {
		if dropErr := p.dropSchema(ctx, t.SchemaName); dropErr != nil {
			logger.Error("Failed to drop partially provisioned schema", "error", dropErr)
			cause = errors.Join(cause, fmt.Errorf("compensation failed: %w", dropErr))
		} else {
			logger.Warn("Dropped partially provisioned schema", "step", step)
		}
		if tenant.IsConflict(cause) {
			return nil, cause
		}
		return nil, &tenant.ProvisioningError{Subdomain: t.Subdomain, Step: step, Err: cause}
	}

	for _, stmt := range pl.statements[1:] {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fail(StepTables, err)
		}
	}

	admin := p.newAdmin(pl)
	query, args, err := p.adminInsert(pl, admin).ToSql()
	if err != nil {
		return fail(StepAdmin, err)
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fail(StepAdmin, err)
	}
	if admin.ID, err = res.LastInsertId(); err != nil {
		return fail(StepAdmin, err)
	}

	if err := p.catalog.Insert(ctx, p.db, t); err != nil {
		return fail(StepCatalog, err)
	}
	return &Result{Tenant: t, AdminUser: admin}, nil
}

// dropSchema removes a schema created by a failed attempt. It ignores
// cancellation of ctx so cleanup still runs after a timeout.
func (p *Provisioner) dropSchema(ctx context.Context, schema string) error {
	stmt, err := renderer.RenderStatements(p.dialect, ast.NewDropSchema(schema).SetIfExists().SetCascade())
	if err != nil {
		return err
	}
	for _, s := range stmt {
		if _, err := p.db.ExecContext(context.WithoutCancel(ctx), s); err != nil {
			return fmt.Errorf("failed to drop schema %s: %w", schema, err)
		}
	}
	return nil
}
