package mysql

import (
	"github.com/stokaro/tenancy/core/ast"
	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/core/renderer/dialects/internal/bufwriter"
	"github.com/stokaro/tenancy/core/renderer/dialects/mysqllike"
	"github.com/stokaro/tenancy/core/renderer/types"
)

var (
	_ types.RenderVisitor = (*Renderer)(nil)
)

// Renderer provides MySQL-specific SQL rendering
type Renderer struct {
	r *mysqllike.Renderer
	w *bufwriter.Writer
}

// New creates a new MySQL renderer
func New() *Renderer {
	w := &bufwriter.Writer{}
	return &Renderer{
		r: mysqllike.New(platform.MySQL, w),
		w: w,
	}
}

func (r *Renderer) Dialect() string {
	return r.r.Dialect()
}

func (r *Renderer) Reset() {
	r.r.Reset()
}

func (r *Renderer) Output() string {
	return r.r.Output()
}

// Render renders an AST node to SQL and returns the result
func (r *Renderer) Render(node ast.Node) (string, error) {
	return r.r.Render(r, node)
}

// VisitCreateSchema renders CREATE DATABASE
func (r *Renderer) VisitCreateSchema(node *ast.CreateSchemaNode) error {
	return r.r.VisitCreateSchema(node)
}

// VisitDropSchema renders DROP DATABASE
func (r *Renderer) VisitDropSchema(node *ast.DropSchemaNode) error {
	return r.r.VisitDropSchema(node)
}

// VisitCreateTable renders MySQL-specific CREATE TABLE statements
func (r *Renderer) VisitCreateTable(node *ast.CreateTableNode) error {
	return r.r.VisitCreateTable(node)
}

// VisitColumn is called when visiting individual columns (used by other visitors)
func (r *Renderer) VisitColumn(node *ast.ColumnNode) error {
	return r.r.VisitColumn(node)
}

// VisitConstraint is called when visiting individual constraints (used by other visitors)
func (r *Renderer) VisitConstraint(node *ast.ConstraintNode) error {
	return r.r.VisitConstraint(node)
}

// VisitIndex renders a CREATE INDEX statement for MySQL
func (r *Renderer) VisitIndex(node *ast.IndexNode) error {
	return r.r.VisitIndex(node)
}

// VisitComment renders a comment
func (r *Renderer) VisitComment(node *ast.CommentNode) error {
	return r.r.VisitComment(node)
}
