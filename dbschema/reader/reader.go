// Package reader inspects live database schemas through information_schema.
//
// The same queries serve PostgreSQL schemas and MySQL databases; only the
// placeholder format and the index catalog differ.
package reader

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/core/sqlutil"
	"github.com/stokaro/tenancy/dbschema/types"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Reader reads schema metadata.
type Reader struct {
	q       Querier
	dialect string
	sb      sq.StatementBuilderType
}

// New creates a reader for the dialect running queries through q.
func New(q Querier, dialect string) *Reader {
	return &Reader{
		q:       q,
		dialect: platform.NormalizeDialect(dialect),
		sb:      sqlutil.StatementBuilder(dialect),
	}
}

// SchemaExists reports whether the schema (a database on MySQL) exists.
func (r *Reader) SchemaExists(ctx context.Context, schema string) (bool, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From("information_schema.schemata").
		Where(sq.Eq{"schema_name": schema}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build schema query: %w", err)
	}

	var n int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check schema %s: %w", schema, err)
	}
	return n > 0, nil
}

// ListSchemas returns the schemas whose name starts with prefix, sorted.
func (r *Reader) ListSchemas(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := r.sb.Select("schema_name").
		From("information_schema.schemata").
		Where(sq.Like{"schema_name": sqlutil.EscapeLike(prefix) + "%"}).
		OrderBy("schema_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build schema query: %w", err)
	}
	return r.strings(ctx, query, args...)
}

// TableNames returns the base tables of schema, sorted by name.
func (r *Reader) TableNames(ctx context.Context, schema string) ([]string, error) {
	query, args, err := r.sb.Select("table_name").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": schema, "table_type": "BASE TABLE"}).
		OrderBy("table_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build table query: %w", err)
	}
	return r.strings(ctx, query, args...)
}

// ReadSchema reads tables, columns, constraints and indexes of one schema.
func (r *Reader) ReadSchema(ctx context.Context, schema string) (*types.DBSchema, error) {
	result := &types.DBSchema{Name: schema}

	names, err := r.TableNames(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	for _, name := range names {
		columns, err := r.readColumns(ctx, schema, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns for table %s: %w", name, err)
		}
		result.Tables = append(result.Tables, types.DBTable{Name: name, Type: "BASE TABLE", Columns: columns})
	}

	constraints, err := r.readConstraints(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to read constraints: %w", err)
	}
	result.Constraints = constraints

	indexes, err := r.readIndexes(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes: %w", err)
	}
	result.Indexes = indexes

	return result, nil
}

func (r *Reader) readColumns(ctx context.Context, schema, table string) ([]types.DBColumn, error) {
	query, args, err := r.sb.Select(
		"column_name", "data_type", "is_nullable", "column_default",
		"character_maximum_length", "ordinal_position",
	).
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": schema, "table_name": table}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build column query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []types.DBColumn
	for rows.Next() {
		var col types.DBColumn
		if err := rows.Scan(&col.Name, &col.DataType, &col.IsNullable, &col.ColumnDefault,
			&col.CharacterMaxLength, &col.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (r *Reader) readConstraints(ctx context.Context, schema string) ([]types.DBConstraint, error) {
	query, args, err := r.sb.Select("constraint_name", "table_name", "constraint_type").
		From("information_schema.table_constraints").
		Where(sq.Eq{"table_schema": schema}).
		// PostgreSQL reports NOT NULL as unnamed CHECK constraints.
		Where(sq.NotLike{"constraint_name": "%_not_null"}).
		OrderBy("table_name", "constraint_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build constraint query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query constraints: %w", err)
	}
	defer rows.Close()

	var constraints []types.DBConstraint
	for rows.Next() {
		var con types.DBConstraint
		if err := rows.Scan(&con.Name, &con.TableName, &con.Type); err != nil {
			return nil, fmt.Errorf("failed to scan constraint: %w", err)
		}
		constraints = append(constraints, con)
	}
	return constraints, rows.Err()
}

func (r *Reader) readIndexes(ctx context.Context, schema string) ([]types.DBIndex, error) {
	var builder sq.SelectBuilder
	if platform.IsMySQLLike(r.dialect) {
		builder = r.sb.Select("DISTINCT index_name", "table_name", "non_unique = 0").
			From("information_schema.statistics").
			Where(sq.Eq{"table_schema": schema}).
			OrderBy("table_name", "index_name")
	} else {
		builder = r.sb.Select("indexname", "tablename", "indexdef LIKE 'CREATE UNIQUE%'").
			From("pg_indexes").
			Where(sq.Eq{"schemaname": schema}).
			OrderBy("tablename", "indexname")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build index query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []types.DBIndex
	for rows.Next() {
		var idx types.DBIndex
		if err := rows.Scan(&idx.Name, &idx.TableName, &idx.IsUnique); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (r *Reader) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
