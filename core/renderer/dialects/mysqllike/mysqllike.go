// Package mysqllike contains the rendering logic shared by MySQL and MariaDB.
package mysqllike

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stokaro/tenancy/core/ast"
	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/core/renderer/dialects/internal/bufwriter"
	"github.com/stokaro/tenancy/core/sqlutil"
)

// Renderer renders SQL for MySQL-compatible servers.
type Renderer struct {
	dialect     string
	w           *bufwriter.Writer
	tableSchema string
}

// New creates a renderer for the given MySQL-like dialect writing into w.
func New(dialect string, w *bufwriter.Writer) *Renderer {
	return &Renderer{
		dialect: dialect,
		w:       w,
	}
}

func (r *Renderer) Dialect() string {
	return r.dialect
}

func (r *Renderer) Reset() {
	r.w.Reset()
	r.tableSchema = ""
}

func (r *Renderer) Output() string {
	return r.w.String()
}

// Render renders an AST node to SQL and returns the result.
// The visitor passed to Accept is v so wrappers keep their own dispatch.
func (r *Renderer) Render(v ast.Visitor, node ast.Node) (string, error) {
	r.Reset()
	if err := node.Accept(v); err != nil {
		return "", err
	}
	return r.Output(), nil
}

func (r *Renderer) quote(name string) string {
	return sqlutil.QuoteIdentifier(platform.MySQL, name)
}

func (r *Renderer) qualified(schema, name string) string {
	return sqlutil.QualifiedName(platform.MySQL, schema, name)
}

// VisitCreateSchema renders CREATE DATABASE; a MySQL schema is a database.
func (r *Renderer) VisitCreateSchema(node *ast.CreateSchemaNode) error {
	if node.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	if node.Comment != "" {
		r.w.WriteLinef("-- %s", node.Comment)
	}
	ifNotExists := ""
	if node.IfNotExists {
		ifNotExists = "IF NOT EXISTS "
	}
	r.w.WriteLinef("CREATE DATABASE %s%s CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci;", ifNotExists, r.quote(node.Name))
	return nil
}

// VisitDropSchema renders DROP DATABASE. CASCADE is implicit in MySQL.
func (r *Renderer) VisitDropSchema(node *ast.DropSchemaNode) error {
	if node.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	ifExists := ""
	if node.IfExists {
		ifExists = "IF EXISTS "
	}
	r.w.WriteLinef("DROP DATABASE %s%s;", ifExists, r.quote(node.Name))
	return nil
}

// VisitCreateTable renders CREATE TABLE with inline comments and table options.
func (r *Renderer) VisitCreateTable(node *ast.CreateTableNode) error {
	if node.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if len(node.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", node.Name)
	}

	r.tableSchema = node.Schema
	defer func() { r.tableSchema = "" }()

	lines := make([]string, 0, len(node.Columns)+len(node.Constraints))
	// MySQL silently ignores column-level REFERENCES, so those are
	// rendered as table-level constraints after the columns.
	var inlineFKs []*ast.ConstraintNode
	for _, col := range node.Columns {
		line, err := r.renderColumn(col)
		if err != nil {
			return fmt.Errorf("table %s: %w", node.Name, err)
		}
		lines = append(lines, line)
		if col.ForeignKey != nil {
			inlineFKs = append(inlineFKs, ast.NewForeignKeyConstraint(col.ForeignKey.Name, []string{col.Name}, col.ForeignKey))
		}
	}
	for _, con := range append(append([]*ast.ConstraintNode(nil), node.Constraints...), inlineFKs...) {
		line, err := r.renderConstraint(con)
		if err != nil {
			return fmt.Errorf("table %s: %w", node.Name, err)
		}
		lines = append(lines, line)
	}

	r.w.WriteLinef("CREATE TABLE %s (", r.qualified(node.Schema, node.Name))
	r.w.WriteLine("  " + strings.Join(lines, ",\n  "))
	r.w.WriteString(")")
	r.w.WriteString(r.tableOptions(node))
	r.w.WriteLine(";")
	return nil
}

func (r *Renderer) tableOptions(node *ast.CreateTableNode) string {
	opts := map[string]string{
		"ENGINE":          "InnoDB",
		"DEFAULT CHARSET": "utf8mb4",
	}
	for k, v := range node.Options {
		opts[strings.ToUpper(k)] = v
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, opts[k])
	}
	if node.Comment != "" {
		fmt.Fprintf(&b, " COMMENT=%s", sqlutil.QuoteLiteral(node.Comment))
	}
	return b.String()
}

// VisitColumn renders a column definition fragment.
func (r *Renderer) VisitColumn(node *ast.ColumnNode) error {
	line, err := r.renderColumn(node)
	if err != nil {
		return err
	}
	r.w.WriteString(line)
	return nil
}

// VisitConstraint renders a table constraint fragment.
func (r *Renderer) VisitConstraint(node *ast.ConstraintNode) error {
	line, err := r.renderConstraint(node)
	if err != nil {
		return err
	}
	r.w.WriteString(line)
	return nil
}

// VisitIndex renders a CREATE INDEX statement.
func (r *Renderer) VisitIndex(node *ast.IndexNode) error {
	if node.Name == "" || node.Table == "" || len(node.Columns) == 0 {
		return fmt.Errorf("index requires a name, a table and at least one column")
	}
	if node.Comment != "" {
		r.w.WriteLinef("-- %s", node.Comment)
	}
	unique := ""
	if node.Unique {
		unique = "UNIQUE "
	}
	r.w.WriteLinef("CREATE %sINDEX %s ON %s (%s);", unique, r.quote(node.Name),
		r.qualified(node.Schema, node.Table), r.columnList(node.Columns))
	return nil
}

// VisitComment renders a comment line.
func (r *Renderer) VisitComment(node *ast.CommentNode) error {
	r.w.WriteLinef("-- %s", node.Text)
	return nil
}

func (r *Renderer) renderColumn(col *ast.ColumnNode) (string, error) {
	if col.Name == "" || col.Type == "" {
		return "", fmt.Errorf("column requires a name and a type")
	}

	isTimestamp := strings.EqualFold(col.Type, "TIMESTAMP")
	parts := []string{r.quote(col.Name), mapType(col)}
	if !col.Nullable || col.Primary {
		parts = append(parts, "NOT NULL")
	}
	if col.AutoInc {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if col.Primary {
		parts = append(parts, "PRIMARY KEY")
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if col.Default != nil {
		switch {
		case col.Default.Expression != "":
			expr := col.Default.Expression
			// DATETIME(6) only accepts a default with matching precision.
			if isTimestamp && strings.EqualFold(expr, "CURRENT_TIMESTAMP") {
				expr = "CURRENT_TIMESTAMP(6)"
			}
			parts = append(parts, "DEFAULT "+expr)
		case col.Default.Value != "":
			parts = append(parts, "DEFAULT "+col.Default.Value)
		}
	}
	if col.Check != "" {
		parts = append(parts, "CHECK ("+col.Check+")")
	}
	if col.Comment != "" {
		parts = append(parts, "COMMENT "+sqlutil.QuoteLiteral(col.Comment))
	}
	return strings.Join(parts, " "), nil
}

func (r *Renderer) renderConstraint(con *ast.ConstraintNode) (string, error) {
	prefix := ""
	if con.Name != "" {
		prefix = "CONSTRAINT " + r.quote(con.Name) + " "
	}

	switch con.Type {
	case ast.PrimaryKeyConstraint:
		if len(con.Columns) == 0 {
			return "", fmt.Errorf("primary key has no columns")
		}
		// MySQL ignores primary key constraint names.
		return fmt.Sprintf("PRIMARY KEY (%s)", r.columnList(con.Columns)), nil
	case ast.UniqueConstraint:
		if len(con.Columns) == 0 {
			return "", fmt.Errorf("unique constraint %q has no columns", con.Name)
		}
		return fmt.Sprintf("%sUNIQUE (%s)", prefix, r.columnList(con.Columns)), nil
	case ast.ForeignKeyConstraint:
		if len(con.Columns) == 0 || con.Reference == nil {
			return "", fmt.Errorf("foreign key %q requires columns and a reference", con.Name)
		}
		return fmt.Sprintf("%sFOREIGN KEY (%s) %s", prefix, r.columnList(con.Columns), r.referencesClause(con.Reference)), nil
	case ast.CheckConstraint:
		if con.Expression == "" {
			return "", fmt.Errorf("check constraint %q has no expression", con.Name)
		}
		return fmt.Sprintf("%sCHECK (%s)", prefix, con.Expression), nil
	default:
		return "", fmt.Errorf("unsupported constraint type %d", con.Type)
	}
}

func (r *Renderer) referencesClause(ref *ast.ForeignKeyRef) string {
	schema := ref.Schema
	if schema == "" {
		schema = r.tableSchema
	}
	clause := fmt.Sprintf("REFERENCES %s (%s)", r.qualified(schema, ref.Table), r.quote(ref.Column))
	if ref.OnDelete != "" {
		clause += " ON DELETE " + ref.OnDelete
	}
	if ref.OnUpdate != "" {
		clause += " ON UPDATE " + ref.OnUpdate
	}
	return clause
}

func (r *Renderer) columnList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = r.quote(c)
	}
	return strings.Join(quoted, ", ")
}

// mapType converts the portable column vocabulary into MySQL types.
func mapType(col *ast.ColumnNode) string {
	switch strings.ToUpper(col.Type) {
	case "TIMESTAMP":
		return "DATETIME(6)"
	case "UUID":
		return "CHAR(36)"
	case "BOOLEAN":
		return "TINYINT(1)"
	default:
		return col.Type
	}
}
