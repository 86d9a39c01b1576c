// Package catalog stores the tenant registry in the shared schema.
//
// The catalog is the only writer of the tenants table. Uniqueness of live
// subdomains and of schema names is enforced by the database; the catalog
// translates violations into tenant.ConflictError. Tenants are never
// hard-deleted: SoftDelete flips the status and leaves the schema alone.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stokaro/tenancy/config"
	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/core/sqlutil"
	"github.com/stokaro/tenancy/dbschema"
	"github.com/stokaro/tenancy/tenant"
)

// Table is the name of the catalog table in the shared schema.
const Table = "tenants"

var columns = []string{
	"id", "name", "subdomain", "schema_name", "status", "plan",
	"settings", "created_at", "updated_at", "expires_at",
}

// Access states whether the caller may change privileged fields.
type Access int

const (
	AccessStandard Access = iota
	AccessElevated
)

// Draft describes a tenant to insert. Empty fields take defaults: the
// schema name is derived from the subdomain, the plan is free, the status is
// active and the settings are the plan defaults.
type Draft struct {
	Name       string
	Subdomain  string
	SchemaName string
	Plan       tenant.Plan
	Status     tenant.Status
	Settings   *tenant.Settings
	ExpiresAt  *time.Time
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name      *string
	Status    *tenant.Status
	Plan      *tenant.Plan
	Settings  *tenant.SettingsPatch
	ExpiresAt *time.Time
	// ClearExpiry removes the expiry date; it wins over ExpiresAt.
	ClearExpiry bool
}

func (p *Patch) isEmpty() bool {
	return p.Name == nil && p.Status == nil && p.Plan == nil && p.Settings == nil &&
		p.ExpiresAt == nil && !p.ClearExpiry
}

// isSoftDelete reports whether the patch does nothing but set the status to
// deleted.
func (p *Patch) isSoftDelete() bool {
	if p.Status == nil || *p.Status != tenant.StatusDeleted {
		return false
	}
	rest := *p
	rest.Status = nil
	return rest.isEmpty()
}

// Querier runs statements inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Catalog is the tenant registry.
type Catalog struct {
	db      *sqlx.DB
	dialect string
	opts    *config.Options
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a catalog on db. opts may be nil for the defaults.
func New(db *sql.DB, dialect string, opts *config.Options) *Catalog {
	if opts == nil {
		opts = config.DefaultOptions()
	}
	dialect = platform.NormalizeDialect(dialect)
	driverName := "pgx"
	if platform.IsMySQLLike(dialect) {
		driverName = "mysql"
	}
	return &Catalog{
		db:      sqlx.NewDb(db, driverName),
		dialect: dialect,
		opts:    opts,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewFromConnection creates a catalog on an opened connection.
func NewFromConnection(conn *dbschema.DatabaseConnection, opts *config.Options) *Catalog {
	return New(conn.DB(), conn.Dialect(), opts)
}

// WithLogger sets the logger for the catalog
func (c *Catalog) WithLogger(l *slog.Logger) *Catalog {
	tmp := *c
	tmp.logger = l
	return &tmp
}

// WithClock replaces the time source. Timestamps are truncated to
// microseconds, the precision both dialects store.
func (c *Catalog) WithClock(now func() time.Time) *Catalog {
	tmp := *c
	tmp.now = now
	return &tmp
}

// Dialect returns the catalog's dialect.
func (c *Catalog) Dialect() string {
	return c.dialect
}

// Options returns the catalog's options.
func (c *Catalog) Options() *config.Options {
	return c.opts
}

func (c *Catalog) builder() sq.StatementBuilderType {
	return sqlutil.StatementBuilder(c.dialect)
}

func (c *Catalog) timestamp() time.Time {
	return c.now().UTC().Truncate(time.Microsecond)
}

// Build validates a draft and turns it into a tenant with a fresh id and
// timestamps. Nothing is written.
func (c *Catalog) Build(draft Draft) (*tenant.Tenant, error) {
	if err := tenant.ValidateName(draft.Name); err != nil {
		return nil, err
	}

	subdomain := tenant.NormalizeSubdomain(draft.Subdomain)
	schemaName := draft.SchemaName
	if schemaName == "" {
		var err error
		if schemaName, err = tenant.SchemaName(c.opts.SchemaPrefix, subdomain); err != nil {
			return nil, err
		}
	} else if err := tenant.ValidateSubdomain(subdomain); err != nil {
		return nil, err
	}
	if err := tenant.ValidateSchemaName(c.opts.SchemaPrefix, "", schemaName); err != nil {
		return nil, err
	}

	plan := draft.Plan
	if plan == "" {
		plan = tenant.PlanFree
	}
	if !plan.IsValid() {
		return nil, &tenant.ValidationError{Field: "plan", Reason: fmt.Sprintf("unknown plan %q", plan)}
	}

	status := draft.Status
	if status == "" {
		status = tenant.StatusActive
	}
	if !status.IsValid() || status == tenant.StatusDeleted {
		return nil, &tenant.ValidationError{Field: "status", Reason: fmt.Sprintf("a new tenant cannot be %q", status)}
	}

	settings := tenant.DefaultSettings(plan)
	if draft.Settings != nil {
		settings = draft.Settings.Clone()
	}
	if err := settings.Limits.Validate(); err != nil {
		return nil, err
	}

	now := c.timestamp()
	return &tenant.Tenant{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(draft.Name),
		Subdomain:  subdomain,
		SchemaName: schemaName,
		Status:     status,
		Plan:       plan,
		Settings:   settings,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  draft.ExpiresAt,
	}, nil
}

// Create validates the draft and inserts the tenant.
func (c *Catalog) Create(ctx context.Context, draft Draft) (*tenant.Tenant, error) {
	t, err := c.Build(draft)
	if err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := c.Insert(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, c.translateWriteError(err, t)
	}

	c.logger.Info("Created tenant", "tenant", t.ID, "subdomain", t.Subdomain, "schema", t.SchemaName)
	return t, nil
}

// CreateTx validates the draft and inserts the tenant inside tx, which the
// caller commits or rolls back.
func (c *Catalog) CreateTx(ctx context.Context, tx *sql.Tx, draft Draft) (*tenant.Tenant, error) {
	t, err := c.Build(draft)
	if err != nil {
		return nil, err
	}
	if err := c.Insert(ctx, tx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// CheckAvailable reports a ConflictError when a live tenant already uses the
// subdomain or any tenant uses the schema name. The unique constraints
// remain the authority; this check only fails early with a clearer error.
func (c *Catalog) CheckAvailable(ctx context.Context, q Querier, subdomain, schemaName string) error {
	query, args, err := c.builder().
		Select("subdomain", "schema_name", "status").
		From(Table).
		Where(sq.Or{
			sq.And{sq.Eq{"subdomain": subdomain}, sq.NotEq{"status": string(tenant.StatusDeleted)}},
			sq.Eq{"schema_name": schemaName},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build availability query: %w", err)
	}

	var existingSubdomain, existingSchema, status string
	err = q.QueryRowContext(ctx, query, args...).Scan(&existingSubdomain, &existingSchema, &status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check subdomain availability: %w", err)
	case existingSubdomain == subdomain && status != string(tenant.StatusDeleted):
		return &tenant.ConflictError{Field: "subdomain", Value: subdomain}
	default:
		return &tenant.ConflictError{Field: "schema_name", Value: schemaName}
	}
}

// Insert writes a built tenant through q, typically a transaction owned by
// the caller. It runs CheckAvailable first.
func (c *Catalog) Insert(ctx context.Context, q Querier, t *tenant.Tenant) error {
	if err := c.CheckAvailable(ctx, q, t.Subdomain, t.SchemaName); err != nil {
		return err
	}

	settings, err := t.Settings.Value()
	if err != nil {
		return err
	}

	query, args, err := c.builder().
		Insert(Table).
		Columns(columns...).
		Values(t.ID.String(), t.Name, t.Subdomain, t.SchemaName, string(t.Status), string(t.Plan),
			settings, t.CreatedAt, t.UpdatedAt, t.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return c.translateWriteError(err, t)
	}
	return nil
}

// translateWriteError maps unique violations on the tenants table to
// ConflictError.
func (c *Catalog) translateWriteError(err error, t *tenant.Tenant) error {
	constraint, ok := dbschema.UniqueViolation(err)
	if !ok {
		return fmt.Errorf("failed to write tenant %s: %w", t.Subdomain, err)
	}
	switch {
	case strings.Contains(constraint, "schema_name"):
		return &tenant.ConflictError{Field: "schema_name", Value: t.SchemaName}
	case strings.Contains(constraint, "pkey"), constraint == "PRIMARY":
		return &tenant.ConflictError{Field: "id", Value: t.ID.String()}
	default:
		return &tenant.ConflictError{Field: "subdomain", Value: t.Subdomain}
	}
}

func (c *Catalog) selectTenants() sq.SelectBuilder {
	return c.builder().Select(columns...).From(Table)
}

func (c *Catalog) getOne(ctx context.Context, q sqlx.QueryerContext, key, value string, b sq.SelectBuilder) (*tenant.Tenant, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var t tenant.Tenant
	if err := sqlx.GetContext(ctx, q, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &tenant.NotFoundError{Key: key, Value: value}
		}
		return nil, fmt.Errorf("failed to load tenant by %s: %w", key, err)
	}
	return &t, nil
}

// Get returns the tenant with the given id in any status, deleted included.
func (c *Catalog) Get(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return c.getOne(ctx, c.db, "id", id.String(),
		c.selectTenants().Where(sq.Eq{"id": id.String()}))
}

// FindBySubdomain returns the live tenant using subdomain. Deleted tenants
// are not returned.
func (c *Catalog) FindBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	subdomain = tenant.NormalizeSubdomain(subdomain)
	return c.getOne(ctx, c.db, "subdomain", subdomain,
		c.selectTenants().Where(sq.Eq{"subdomain": subdomain}).Where(sq.NotEq{"status": string(tenant.StatusDeleted)}))
}

// FindBySchemaName returns the tenant owning the schema in any status.
func (c *Catalog) FindBySchemaName(ctx context.Context, schemaName string) (*tenant.Tenant, error) {
	return c.getOne(ctx, c.db, "schema_name", schemaName,
		c.selectTenants().Where(sq.Eq{"schema_name": schemaName}))
}

// Update applies a patch to a tenant and returns the result.
//
// Status and plan changes require AccessElevated. Settings are merged
// section by section. A plan change resets the limits to the new plan's
// defaults unless the same patch sets limits. Setting the status to deleted
// is a soft delete and, like SoftDelete, succeeds without changes on a tenant
// that is already deleted. Otherwise a deleted tenant only accepts an elevated
// status change, which restores it.
func (c *Catalog) Update(ctx context.Context, id uuid.UUID, patch Patch, access Access) (*tenant.Tenant, error) {
	if err := c.validatePatch(patch, access); err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	current, err := c.getOne(ctx, tx, "id", id.String(),
		c.selectTenants().Where(sq.Eq{"id": id.String()}).Suffix("FOR UPDATE"))
	if err != nil {
		return nil, err
	}
	if current.IsDeleted() {
		if patch.isSoftDelete() {
			return current, nil
		}
		if patch.Status == nil || *patch.Status == tenant.StatusDeleted {
			return nil, &tenant.NotFoundError{Key: "id", Value: id.String()}
		}
	}
	if patch.isEmpty() {
		return current, nil
	}

	updated := applyPatch(current, patch)
	if err := updated.Settings.Limits.Validate(); err != nil {
		return nil, err
	}
	updated.UpdatedAt = c.timestamp()

	settings, err := updated.Settings.Value()
	if err != nil {
		return nil, err
	}
	query, args, err := c.builder().
		Update(Table).
		Set("name", updated.Name).
		Set("status", string(updated.Status)).
		Set("plan", string(updated.Plan)).
		Set("settings", settings).
		Set("expires_at", updated.ExpiresAt).
		Set("updated_at", updated.UpdatedAt).
		Where(sq.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, c.translateWriteError(err, updated)
	}
	if err := tx.Commit(); err != nil {
		return nil, c.translateWriteError(err, updated)
	}

	c.logger.Info("Updated tenant", "tenant", id, "status", updated.Status, "plan", updated.Plan)
	return updated, nil
}

func (c *Catalog) validatePatch(patch Patch, access Access) error {
	if patch.Name != nil {
		if err := tenant.ValidateName(*patch.Name); err != nil {
			return err
		}
	}
	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return &tenant.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *patch.Status)}
		}
		if access != AccessElevated {
			return &tenant.PermissionError{Field: "status"}
		}
	}
	if patch.Plan != nil {
		if !patch.Plan.IsValid() {
			return &tenant.ValidationError{Field: "plan", Reason: fmt.Sprintf("unknown plan %q", *patch.Plan)}
		}
		if access != AccessElevated {
			return &tenant.PermissionError{Field: "plan"}
		}
	}
	return nil
}

func applyPatch(current *tenant.Tenant, patch Patch) *tenant.Tenant {
	updated := *current
	updated.Settings = current.Settings.Clone()

	if patch.Name != nil {
		updated.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.Plan != nil && *patch.Plan != current.Plan {
		updated.Plan = *patch.Plan
		if patch.Settings == nil || patch.Settings.Limits.IsEmpty() {
			updated.Settings.Limits = tenant.LimitsForPlan(updated.Plan)
		}
	}
	if patch.Settings != nil {
		updated.Settings = updated.Settings.Merge(patch.Settings)
	}
	switch {
	case patch.ClearExpiry:
		updated.ExpiresAt = nil
	case patch.ExpiresAt != nil:
		expires := patch.ExpiresAt.UTC()
		updated.ExpiresAt = &expires
	}
	return &updated
}

// SoftDelete marks the tenant deleted. Its schema and data stay in place.
// Deleting an already deleted tenant succeeds.
func (c *Catalog) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query, args, err := c.builder().
		Update(Table).
		Set("status", string(tenant.StatusDeleted)).
		Set("updated_at", c.timestamp()).
		Where(sq.Eq{"id": id.String()}).
		Where(sq.NotEq{"status": string(tenant.StatusDeleted)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete tenant %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete tenant %s: %w", id, err)
	}
	if affected == 0 {
		// Either already deleted or unknown.
		if _, err := c.Get(ctx, id); err != nil {
			return err
		}
		return nil
	}

	c.logger.Info("Deleted tenant", "tenant", id)
	return nil
}
