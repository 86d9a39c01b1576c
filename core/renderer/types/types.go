package types

import (
	"github.com/stokaro/tenancy/core/ast"
)

// RenderVisitor is implemented by every dialect renderer.
type RenderVisitor interface {
	ast.Visitor

	// Render renders a single node and returns the generated SQL
	Render(node ast.Node) (string, error)
	// Dialect returns the normalized dialect name
	Dialect() string
	// Reset clears the accumulated output
	Reset()
	// Output returns the accumulated output
	Output() string
}
