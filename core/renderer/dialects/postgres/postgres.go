package postgres

import (
	"fmt"
	"strings"

	"github.com/stokaro/tenancy/core/ast"
	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/core/renderer/dialects/internal/bufwriter"
	"github.com/stokaro/tenancy/core/renderer/types"
	"github.com/stokaro/tenancy/core/sqlutil"
)

var (
	_ types.RenderVisitor = (*Renderer)(nil)
)

// Renderer provides PostgreSQL-specific SQL rendering
type Renderer struct {
	w bufwriter.Writer
	// tableSchema is the schema of the table being rendered, used to qualify
	// foreign key targets that do not name a schema themselves.
	tableSchema string
}

// New creates a new PostgreSQL renderer
func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Dialect() string {
	return platform.Postgres
}

func (r *Renderer) Reset() {
	r.w.Reset()
	r.tableSchema = ""
}

func (r *Renderer) Output() string {
	return r.w.String()
}

// Render renders an AST node to SQL and returns the result
func (r *Renderer) Render(node ast.Node) (string, error) {
	r.Reset()
	if err := node.Accept(r); err != nil {
		return "", err
	}
	return r.Output(), nil
}

func (r *Renderer) quote(name string) string {
	return sqlutil.QuoteIdentifier(platform.Postgres, name)
}

func (r *Renderer) qualified(schema, name string) string {
	return sqlutil.QualifiedName(platform.Postgres, schema, name)
}

// VisitCreateSchema renders CREATE SCHEMA
func (r *Renderer) VisitCreateSchema(node *ast.CreateSchemaNode) error {
	if node.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	if node.Comment != "" {
		r.w.WriteLinef("-- %s", node.Comment)
	}
	if node.IfNotExists {
		r.w.WriteLinef("CREATE SCHEMA IF NOT EXISTS %s;", r.quote(node.Name))
	} else {
		r.w.WriteLinef("CREATE SCHEMA %s;", r.quote(node.Name))
	}
	return nil
}

// VisitDropSchema renders DROP SCHEMA
func (r *Renderer) VisitDropSchema(node *ast.DropSchemaNode) error {
	if node.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	r.w.WriteString("DROP SCHEMA ")
	if node.IfExists {
		r.w.WriteString("IF EXISTS ")
	}
	r.w.WriteString(r.quote(node.Name))
	if node.Cascade {
		r.w.WriteString(" CASCADE")
	}
	r.w.WriteLine(";")
	return nil
}

// VisitCreateTable renders CREATE TABLE followed by COMMENT ON statements
func (r *Renderer) VisitCreateTable(node *ast.CreateTableNode) error {
	if node.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if len(node.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", node.Name)
	}

	r.tableSchema = node.Schema
	defer func() { r.tableSchema = "" }()

	table := r.qualified(node.Schema, node.Name)

	lines := make([]string, 0, len(node.Columns)+len(node.Constraints))
	for _, col := range node.Columns {
		line, err := r.renderColumn(col)
		if err != nil {
			return fmt.Errorf("table %s: %w", node.Name, err)
		}
		lines = append(lines, line)
	}
	for _, con := range node.Constraints {
		line, err := r.renderConstraint(con)
		if err != nil {
			return fmt.Errorf("table %s: %w", node.Name, err)
		}
		lines = append(lines, line)
	}

	r.w.WriteLinef("CREATE TABLE %s (", table)
	r.w.WriteLine("  " + strings.Join(lines, ",\n  "))
	r.w.WriteLine(");")

	if node.Comment != "" {
		r.w.WriteLinef("COMMENT ON TABLE %s IS %s;", table, sqlutil.QuoteLiteral(node.Comment))
	}
	for _, col := range node.Columns {
		if col.Comment != "" {
			r.w.WriteLinef("COMMENT ON COLUMN %s.%s IS %s;", table, r.quote(col.Name), sqlutil.QuoteLiteral(col.Comment))
		}
	}
	return nil
}

// VisitColumn renders a column definition fragment
func (r *Renderer) VisitColumn(node *ast.ColumnNode) error {
	line, err := r.renderColumn(node)
	if err != nil {
		return err
	}
	r.w.WriteString(line)
	return nil
}

// VisitConstraint renders a table constraint fragment
func (r *Renderer) VisitConstraint(node *ast.ConstraintNode) error {
	line, err := r.renderConstraint(node)
	if err != nil {
		return err
	}
	r.w.WriteString(line)
	return nil
}

// VisitIndex renders a CREATE INDEX statement
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

// VisitComment renders a comment line
func (r *Renderer) VisitComment(node *ast.CommentNode) error {
	r.w.WriteLinef("-- %s", node.Text)
	return nil
}

func (r *Renderer) renderColumn(col *ast.ColumnNode) (string, error) {
	if col.Name == "" || col.Type == "" {
		return "", fmt.Errorf("column requires a name and a type")
	}

	parts := []string{r.quote(col.Name), mapType(col)}
	if col.Primary {
		parts = append(parts, "PRIMARY KEY")
	} else if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if col.Default != nil {
		if col.Default.Expression != "" {
			parts = append(parts, "DEFAULT "+col.Default.Expression)
		} else if col.Default.Value != "" {
			parts = append(parts, "DEFAULT "+col.Default.Value)
		}
	}
	if col.Check != "" {
		parts = append(parts, "CHECK ("+col.Check+")")
	}
	if col.ForeignKey != nil {
		parts = append(parts, r.referencesClause(col.ForeignKey))
	}
	return strings.Join(parts, " "), nil
}

func (r *Renderer) renderConstraint(con *ast.ConstraintNode) (string, error) {
	prefix := ""
	if con.Name != "" {
		prefix = "CONSTRAINT " + r.quote(con.Name) + " "
	}

	switch con.Type {
	case ast.PrimaryKeyConstraint, ast.UniqueConstraint:
		if len(con.Columns) == 0 {
			return "", fmt.Errorf("%s constraint %q has no columns", con.Type, con.Name)
		}
		return fmt.Sprintf("%s%s (%s)", prefix, con.Type, r.columnList(con.Columns)), nil
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

// mapType converts the portable column vocabulary into PostgreSQL types.
func mapType(col *ast.ColumnNode) string {
	typ := strings.ToUpper(col.Type)
	switch {
	case col.AutoInc && typ == "BIGINT":
		return "BIGSERIAL"
	case col.AutoInc && (typ == "INTEGER" || typ == "INT"):
		return "SERIAL"
	case typ == "TIMESTAMP":
		return "TIMESTAMPTZ"
	case typ == "JSON":
		return "JSONB"
	default:
		return col.Type
	}
}
