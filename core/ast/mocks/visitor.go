package mocks

import (
	"errors"

	"github.com/stokaro/tenancy/core/ast"
)

// MockVisitor implements the Visitor interface for testing
type MockVisitor struct {
	VisitedNodes []string
	ReturnError  bool
}

func (m *MockVisitor) visit(entry string) error {
	m.VisitedNodes = append(m.VisitedNodes, entry)
	if m.ReturnError {
		return errors.New("mock error")
	}
	return nil
}

func (m *MockVisitor) VisitCreateSchema(node *ast.CreateSchemaNode) error {
	return m.visit("CreateSchema:" + node.Name)
}

func (m *MockVisitor) VisitDropSchema(node *ast.DropSchemaNode) error {
	return m.visit("DropSchema:" + node.Name)
}

func (m *MockVisitor) VisitCreateTable(node *ast.CreateTableNode) error {
	return m.visit("CreateTable:" + node.Name)
}

func (m *MockVisitor) VisitColumn(node *ast.ColumnNode) error {
	return m.visit("Column:" + node.Name)
}

func (m *MockVisitor) VisitConstraint(node *ast.ConstraintNode) error {
	return m.visit("Constraint:" + node.Name)
}

func (m *MockVisitor) VisitIndex(node *ast.IndexNode) error {
	return m.visit("Index:" + node.Name)
}

func (m *MockVisitor) VisitComment(node *ast.CommentNode) error {
	return m.visit("Comment:" + node.Text)
}
