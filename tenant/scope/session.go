package scope

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"

	"github.com/stokaro/tenancy/core/sqlutil"
)

// Session is the handle passed to the function run by WithTenantContext.
// Unqualified table names resolve to the tenant schema. A Session is only
// valid until that function returns and must not be shared between
// goroutines.
type Session struct {
	tx      *sqlx.Tx
	schema  string
	dialect string
}

func newSession(tx *sql.Tx, schema, dialect string) *Session {
	return &Session{
		tx:      &sqlx.Tx{Tx: tx, Mapper: reflectx.NewMapperFunc("db", sqlx.NameMapper)},
		schema:  schema,
		dialect: dialect,
	}
}

// Schema returns the tenant schema the session is bound to.
func (s *Session) Schema() string {
	return s.schema
}

// Dialect returns the database dialect.
func (s *Session) Dialect() string {
	return s.dialect
}

// Table returns the quoted, schema-qualified name of a tenant table, for
// queries that should not depend on the search path.
func (s *Session) Table(name string) string {
	return sqlutil.QualifiedName(s.dialect, s.schema, name)
}

// Builder returns a statement builder with the dialect's placeholders that
// runs its statements on the session.
func (s *Session) Builder() sq.StatementBuilderType {
	return sqlutil.StatementBuilder(s.dialect).RunWith(s.tx.Tx)
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.tx.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.tx.QueryContext(ctx, query, args...)
}

func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.tx.QueryRowContext(ctx, query, args...)
}

// Get scans a single row into dest using db struct tags.
func (s *Session) Get(ctx context.Context, dest any, query string, args ...any) error {
	return s.tx.GetContext(ctx, dest, query, args...)
}

// Select scans all rows into the slice pointed to by dest.
func (s *Session) Select(ctx context.Context, dest any, query string, args ...any) error {
	return s.tx.SelectContext(ctx, dest, query, args...)
}
