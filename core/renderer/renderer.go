// Package renderer turns AST nodes into executable SQL for a dialect.
package renderer

import (
	"fmt"

	"github.com/stokaro/tenancy/core/ast"
	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/core/renderer/dialects/mariadb"
	"github.com/stokaro/tenancy/core/renderer/dialects/mysql"
	"github.com/stokaro/tenancy/core/renderer/dialects/postgres"
	"github.com/stokaro/tenancy/core/renderer/types"
	"github.com/stokaro/tenancy/core/sqlutil"
)

// NewRenderer returns the renderer for the dialect.
func NewRenderer(dialect string) (types.RenderVisitor, error) {
	switch platform.NormalizeDialect(dialect) {
	case platform.Postgres:
		return postgres.New(), nil
	case platform.MySQL:
		return mysql.New(), nil
	case platform.MariaDB:
		return mariadb.New(), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %q", dialect)
	}
}

// RenderSQL renders the nodes in order and concatenates the output.
func RenderSQL(dialect string, nodes ...ast.Node) (string, error) {
	r, err := NewRenderer(dialect)
	if err != nil {
		return "", err
	}

	var out string
	for _, node := range nodes {
		sql, err := r.Render(node)
		if err != nil {
			return "", err
		}
		out += sql
	}
	return out, nil
}

// RenderStatements renders the nodes and returns one executable statement per
// element, without comments or trailing semicolons. A single node may yield
// several statements (e.g. CREATE TABLE followed by COMMENT ON in PostgreSQL).
func RenderStatements(dialect string, nodes ...ast.Node) ([]string, error) {
	r, err := NewRenderer(dialect)
	if err != nil {
		return nil, err
	}

	var statements []string
	for _, node := range nodes {
		sql, err := r.Render(node)
		if err != nil {
			return nil, err
		}
		statements = append(statements, sqlutil.SplitSQLStatements(sqlutil.StripComments(sql))...)
	}
	return statements, nil
}
