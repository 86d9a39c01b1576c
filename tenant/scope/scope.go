// Package scope runs database work inside one tenant's schema.
//
// Every call checks out a dedicated connection and opens a transaction on it.
// On PostgreSQL the tenant schema is put on the search path with SET LOCAL,
// which ends with the transaction. On MySQL the connection switches database
// with USE and switches back before it is returned to the pool; a connection
// that cannot be switched back is discarded. MySQL has no shared schema of its
// own: the shared schema name stands for the database named by the
// connection URL, which also holds the catalog.
package scope

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/stokaro/tenancy/config"
	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/core/sqlutil"
	"github.com/stokaro/tenancy/dbschema/reader"
	"github.com/stokaro/tenancy/tenant"
	"github.com/stokaro/tenancy/tenant/catalog"
)

// Func is the work run inside a tenant schema.
type Func func(ctx context.Context, s *Session) error

// Option configures a single WithTenantContext call.
type Option func(*callOptions)

type callOptions struct {
	readOnly bool
}

// ReadOnly opens a read-only transaction.
func ReadOnly() Option {
	return func(o *callOptions) {
		o.readOnly = true
	}
}

// Switcher binds work to tenant schemas.
type Switcher struct {
	db      *sql.DB
	dialect string
	opts    *config.Options
	logger  *slog.Logger
}

// New creates a switcher on db. opts may be nil for the defaults.
func New(db *sql.DB, dialect string, opts *config.Options) *Switcher {
	if opts == nil {
		opts = config.DefaultOptions()
	}
	return &Switcher{
		db:      db,
		dialect: platform.NormalizeDialect(dialect),
		opts:    opts,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger for the switcher
func (s *Switcher) WithLogger(l *slog.Logger) *Switcher {
	tmp := *s
	tmp.logger = l
	return &tmp
}

// WithTenantContext runs fn with unqualified table names resolving to schema.
//
// The transaction is committed when fn returns nil and rolled back otherwise.
// fn's error is returned unchanged, joined with a rollback failure if there
// is one. A panic in fn rolls back and is re-raised. Whatever happens, the
// connection goes back to the pool without the tenant schema selected.
//
// schema must be a tenant schema or the shared schema; anything else is a
// ValidationError. A schema that does not exist is a NotFoundError. Where
// provisioning cannot create a schema atomically, a tenant schema must also
// have a catalog row, so a schema still being built is a NotFoundError too.
func (s *Switcher) WithTenantContext(ctx context.Context, schema string, fn Func, opts ...Option) (err error) {
	if err := tenant.ValidateSchemaName(s.opts.SchemaPrefix, s.opts.SharedSchema, schema); err != nil {
		return err
	}
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	mysqlShared := platform.IsMySQLLike(s.dialect) && schema == s.opts.SharedSchema
	if mysqlShared {
		if schema, err = s.currentDatabase(ctx, conn); err != nil {
			return err
		}
		if schema == "" {
			return &tenant.NotFoundError{Key: "schema_name", Value: s.opts.SharedSchema}
		}
	} else if err := s.checkSchema(ctx, conn, schema); err != nil {
		return err
	}

	if platform.IsMySQLLike(s.dialect) && !mysqlShared {
		previous, err := s.useDatabase(ctx, conn, schema)
		if err != nil {
			return err
		}
		defer func() {
			if resetErr := s.resetDatabase(ctx, conn, previous); resetErr != nil {
				err = errors.Join(err, resetErr)
			}
		}()
	}

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: co.readOnly})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if s.dialect == platform.Postgres {
		searchPath := fmt.Sprintf("SET LOCAL search_path TO %s, %s",
			sqlutil.QuoteIdentifier(s.dialect, schema), sqlutil.QuoteIdentifier(s.dialect, s.opts.SharedSchema))
		if _, err := tx.ExecContext(ctx, searchPath); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set search path to %s: %w", schema, err)
		}
	}

	if err := fn(ctx, newSession(tx, schema, s.dialect)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to roll back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit work in schema %s: %w", schema, err)
	}
	return nil
}

// Query runs fn inside schema like WithTenantContext and returns its result.
func Query[T any](ctx context.Context, s *Switcher, schema string, fn func(ctx context.Context, s *Session) (T, error), opts ...Option) (T, error) {
	var result T
	err := s.WithTenantContext(ctx, schema, func(ctx context.Context, sess *Session) error {
		var err error
		result, err = fn(ctx, sess)
		return err
	}, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// checkSchema fails with a NotFoundError unless schema exists and, on
// dialects without transactional DDL, a tenant is registered for it.
func (s *Switcher) checkSchema(ctx context.Context, conn *sql.Conn, schema string) error {
	exists, err := reader.New(conn, s.dialect).SchemaExists(ctx, schema)
	if err != nil {
		return err
	}
	if !exists {
		return &tenant.NotFoundError{Key: "schema_name", Value: schema}
	}
	if platform.SupportsTransactionalDDL(s.dialect) {
		return nil
	}

	query, args, err := sqlutil.StatementBuilder(s.dialect).
		Select("COUNT(*)").
		From(catalog.Table).
		Where(sq.Eq{"schema_name": schema}).
		ToSql()
	if err != nil {
		return err
	}
	var n int
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return fmt.Errorf("failed to look up tenant for schema %s: %w", schema, err)
	}
	if n == 0 {
		return &tenant.NotFoundError{Key: "schema_name", Value: schema}
	}
	return nil
}

// currentDatabase returns the database conn is using, or "" if it has none.
func (s *Switcher) currentDatabase(ctx context.Context, conn *sql.Conn) (string, error) {
	var name sql.NullString
	if err := conn.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&name); err != nil {
		return "", fmt.Errorf("failed to read current database: %w", err)
	}
	return name.String, nil
}

// useDatabase switches conn to schema and returns the database it was using
// before. An empty previous database means the connection had none.
func (s *Switcher) useDatabase(ctx context.Context, conn *sql.Conn, schema string) (string, error) {
	previous, err := s.currentDatabase(ctx, conn)
	if err != nil {
		return "", err
	}
	if _, err := conn.ExecContext(ctx, "USE "+sqlutil.QuoteIdentifier(s.dialect, schema)); err != nil {
		return "", fmt.Errorf("failed to switch to database %s: %w", schema, err)
	}
	return previous, nil
}

// resetDatabase switches conn back to previous. It runs even after ctx is
// cancelled. When that is impossible the connection is discarded so the
// pool never hands out a connection still bound to a tenant.
func (s *Switcher) resetDatabase(ctx context.Context, conn *sql.Conn, previous string) error {
	var err error
	if previous == "" {
		err = errors.New("connection had no default database")
	} else {
		_, err = conn.ExecContext(context.WithoutCancel(ctx), "USE "+sqlutil.QuoteIdentifier(s.dialect, previous))
	}
	if err == nil {
		return nil
	}

	s.logger.Warn("Discarding connection that could not leave tenant database", "database", previous, "error", err)
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	if previous == "" {
		return nil
	}
	return fmt.Errorf("failed to restore database %s: %w", previous, err)
}
