// Package sqlutil holds small dialect-aware helpers shared by the renderers,
// the catalog and the tenant scope: identifier quoting, schema qualification,
// placeholder selection and splitting of multi-statement SQL scripts.
package sqlutil

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/stokaro/tenancy/core/platform"
)

// QuoteIdentifier quotes a single identifier for the given dialect.
// PostgreSQL uses double quotes, MySQL-like dialects use backticks.
func QuoteIdentifier(dialect, name string) string {
	if platform.IsMySQLLike(dialect) {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return pq.QuoteIdentifier(name)
}

// QualifiedName returns schema.table with both parts quoted. An empty schema
// yields the quoted table name only.
func QualifiedName(dialect, schema, table string) string {
	if schema == "" {
		return QuoteIdentifier(dialect, table)
	}
	return QuoteIdentifier(dialect, schema) + "." + QuoteIdentifier(dialect, table)
}

// QuoteLiteral quotes a string literal. Single quotes are doubled, which is
// valid in both PostgreSQL and MySQL (with the default sql_mode).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// Placeholder returns the bind parameter format used by the dialect's driver.
func Placeholder(dialect string) sq.PlaceholderFormat {
	if platform.IsMySQLLike(dialect) {
		return sq.Question
	}
	return sq.Dollar
}

// StatementBuilder returns a squirrel builder configured for the dialect.
func StatementBuilder(dialect string) sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(Placeholder(dialect))
}

// EscapeLike escapes the LIKE wildcards in s using backslash, the default
// escape character of both PostgreSQL and MySQL.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
