// Package engine is the entry point of the tenancy library. It wires the
// catalog, the provisioner, the scope switcher and the statistics aggregator
// to one database connection.
//
// Example:
//
//	conn, err := dbschema.ConnectToDatabase(ctx, "postgres://localhost/blogs")
//	if err != nil {
//		return err
//	}
//	eng, err := engine.New(conn, config.DefaultOptions().WithBaseDomain("blogs.example.com"))
//	if err != nil {
//		return err
//	}
//	if err := eng.Bootstrap(ctx); err != nil {
//		return err
//	}
//	t, err := eng.ResolveTenant(ctx, r.Host)
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stokaro/tenancy/config"
	"github.com/stokaro/tenancy/dbschema"
	"github.com/stokaro/tenancy/migration/migrator"
	"github.com/stokaro/tenancy/tenant"
	"github.com/stokaro/tenancy/tenant/catalog"
	"github.com/stokaro/tenancy/tenant/catalog/migrations"
	"github.com/stokaro/tenancy/tenant/provisioner"
	"github.com/stokaro/tenancy/tenant/scope"
	"github.com/stokaro/tenancy/tenant/stats"
)

// Engine exposes tenant resolution, provisioning, scoped data access and
// statistics. It is safe for concurrent use.
type Engine struct {
	conn        *dbschema.DatabaseConnection
	opts        *config.Options
	catalog     *catalog.Catalog
	provisioner *provisioner.Provisioner
	switcher    *scope.Switcher
	stats       *stats.Aggregator
	logger      *slog.Logger
}

// New creates an engine on conn. opts may be nil for the defaults.
func New(conn *dbschema.DatabaseConnection, opts *config.Options) (*Engine, error) {
	if opts == nil {
		opts = config.DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	cat := catalog.NewFromConnection(conn, opts)
	sw := scope.New(conn.DB(), conn.Dialect(), opts)
	return &Engine{
		conn:        conn,
		opts:        opts,
		catalog:     cat,
		provisioner: provisioner.New(conn.DB(), cat),
		switcher:    sw,
		stats:       stats.New(cat, sw),
		logger:      slog.Default(),
	}, nil
}

// Open connects to dbURL and creates an engine on the connection.
func Open(ctx context.Context, dbURL string, opts *config.Options) (*Engine, error) {
	conn, err := dbschema.ConnectToDatabase(ctx, dbURL)
	if err != nil {
		return nil, err
	}
	e, err := New(conn, opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return e, nil
}

// WithLogger sets the logger for the engine and every component
func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	tmp := *e
	tmp.logger = l
	tmp.catalog = e.catalog.WithLogger(l)
	tmp.provisioner = provisioner.New(e.conn.DB(), tmp.catalog).WithLogger(l)
	tmp.switcher = e.switcher.WithLogger(l)
	tmp.stats = stats.New(tmp.catalog, tmp.switcher).WithLogger(l)
	return &tmp
}

// Close closes the underlying database connection.
func (e *Engine) Close() error {
	return e.conn.Close()
}

func (e *Engine) Options() *config.Options {
	return e.opts
}

func (e *Engine) Connection() *dbschema.DatabaseConnection {
	return e.conn
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

func (e *Engine) Provisioner() *provisioner.Provisioner {
	return e.provisioner
}

func (e *Engine) Switcher() *scope.Switcher {
	return e.switcher
}

// Migrator returns the migrator of the shared catalog schema.
func (e *Engine) Migrator() (*migrator.Migrator, error) {
	fsys, err := migrations.FS(e.conn.Dialect())
	if err != nil {
		return nil, err
	}
	m, err := migrator.NewFSMigrator(e.conn, fsys)
	if err != nil {
		return nil, err
	}
	return m.WithLogger(e.logger), nil
}

// Bootstrap brings the shared catalog schema up to date. It is safe to call
// from several processes at once.
func (e *Engine) Bootstrap(ctx context.Context) error {
	m, err := e.Migrator()
	if err != nil {
		return err
	}
	if err := m.MigrateUp(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap catalog: %w", err)
	}
	return nil
}

// ResolveTenant finds the tenant serving host, which is either a bare
// subdomain or a host name under the configured base domain, optionally with
// a port. Tenants in any status other than deleted are returned; the caller
// decides whether a suspended or expired tenant may serve.
func (e *Engine) ResolveTenant(ctx context.Context, host string) (*tenant.Tenant, error) {
	subdomain, err := tenant.SubdomainFromHost(host, e.opts.BaseDomain)
	if err != nil {
		return nil, err
	}
	return e.catalog.FindBySubdomain(ctx, subdomain)
}

// ProvisionTenant creates a tenant with its schema and administrator.
func (e *Engine) ProvisionTenant(ctx context.Context, req provisioner.Request) (*provisioner.Result, error) {
	return e.provisioner.Provision(ctx, req)
}

// WithTenantContext runs fn inside the tenant schema; see scope.Switcher.
func (e *Engine) WithTenantContext(ctx context.Context, schemaName string, fn scope.Func, opts ...scope.Option) error {
	return e.switcher.WithTenantContext(ctx, schemaName, fn, opts...)
}

// GetStatistics returns the content counts of a tenant.
func (e *Engine) GetStatistics(ctx context.Context, tenantID uuid.UUID, opts ...stats.Option) (*stats.Statistics, error) {
	return e.stats.GetStatistics(ctx, tenantID, opts...)
}
