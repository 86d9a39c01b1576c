package ast

// Node represents any SQL AST node that can be visited by a Visitor.
//
// All AST nodes implement this interface to participate in the visitor pattern.
// The Accept method allows visitors to traverse the AST and generate
// dialect-specific SQL output.
type Node interface {
	// Accept implements the visitor pattern for rendering
	Accept(visitor Visitor) error
}

// Visitor renders or inspects AST nodes.
//
// Dialect renderers implement every method; statement-level nodes
// (schemas, tables, indexes, comments) produce complete SQL statements while
// column and constraint nodes are rendered as fragments of CREATE TABLE.
type Visitor interface {
	VisitCreateSchema(node *CreateSchemaNode) error
	VisitDropSchema(node *DropSchemaNode) error
	VisitCreateTable(node *CreateTableNode) error
	VisitColumn(node *ColumnNode) error
	VisitConstraint(node *ConstraintNode) error
	VisitIndex(node *IndexNode) error
	VisitComment(node *CommentNode) error
}

// ConstraintType identifies the kind of a table-level constraint.
type ConstraintType int

const (
	PrimaryKeyConstraint ConstraintType = iota
	UniqueConstraint
	ForeignKeyConstraint
	CheckConstraint
)

// String returns the SQL keyword(s) for the constraint type.
func (t ConstraintType) String() string {
	switch t {
	case PrimaryKeyConstraint:
		return "PRIMARY KEY"
	case UniqueConstraint:
		return "UNIQUE"
	case ForeignKeyConstraint:
		return "FOREIGN KEY"
	case CheckConstraint:
		return "CHECK"
	default:
		return "UNKNOWN"
	}
}

// Referential actions accepted by ForeignKeyRef.OnDelete and OnUpdate.
const (
	Cascade  = "CASCADE"
	SetNull  = "SET NULL"
	Restrict = "RESTRICT"
	NoAction = "NO ACTION"
)

// ForeignKeyRef describes the target of a foreign key.
//
// When Schema is empty the renderer qualifies the referenced table with the
// schema of the table that owns the constraint, so a table set can be
// materialized into any schema without rewriting its references.
type ForeignKeyRef struct {
	// Schema is the schema of the referenced table (optional)
	Schema string
	// Table is the referenced table
	Table string
	// Column is the referenced column
	Column string
	// OnDelete is the referential action on delete (CASCADE, SET NULL, ...)
	OnDelete string
	// OnUpdate is the referential action on update
	OnUpdate string
	// Name is the constraint name
	Name string
}

// DefaultValue holds a column default, either a literal or an expression.
type DefaultValue struct {
	// Value is a literal, already quoted when it is a string (e.g. "'draft'")
	Value string
	// Expression is a function call such as CURRENT_TIMESTAMP
	Expression string
}

// CreateSchemaNode represents a CREATE SCHEMA statement.
//
// MySQL-like dialects render it as CREATE DATABASE, since a MySQL schema is
// a database.
type CreateSchemaNode struct {
	// Name is the schema name
	Name string
	// IfNotExists adds the IF NOT EXISTS clause
	IfNotExists bool
	// Comment is an optional comment emitted before the statement
	Comment string
}

// NewCreateSchema creates a new CREATE SCHEMA node.
//
// Example:
//
//	schema := NewCreateSchema("tenant_acme")
func NewCreateSchema(name string) *CreateSchemaNode {
	return &CreateSchemaNode{Name: name}
}

// SetIfNotExists marks the statement with IF NOT EXISTS.
func (n *CreateSchemaNode) SetIfNotExists() *CreateSchemaNode {
	n.IfNotExists = true
	return n
}

// SetComment sets the comment and returns the node for chaining.
func (n *CreateSchemaNode) SetComment(comment string) *CreateSchemaNode {
	n.Comment = comment
	return n
}

// Accept implements the Node interface for CreateSchemaNode.
func (n *CreateSchemaNode) Accept(visitor Visitor) error {
	return visitor.VisitCreateSchema(n)
}

// DropSchemaNode represents a DROP SCHEMA statement.
type DropSchemaNode struct {
	// Name is the schema name
	Name string
	// IfExists adds the IF EXISTS clause
	IfExists bool
	// Cascade drops all contained objects (PostgreSQL only)
	Cascade bool
}

// NewDropSchema creates a new DROP SCHEMA node.
func NewDropSchema(name string) *DropSchemaNode {
	return &DropSchemaNode{Name: name}
}

// SetIfExists marks the statement with IF EXISTS.
func (n *DropSchemaNode) SetIfExists() *DropSchemaNode {
	n.IfExists = true
	return n
}

// SetCascade marks the statement with CASCADE.
func (n *DropSchemaNode) SetCascade() *DropSchemaNode {
	n.Cascade = true
	return n
}

// Accept implements the Node interface for DropSchemaNode.
func (n *DropSchemaNode) Accept(visitor Visitor) error {
	return visitor.VisitDropSchema(n)
}

// CreateTableNode represents a CREATE TABLE statement with all its components.
//
// This node contains the complete definition of a table including columns,
// constraints, dialect-specific options, and optional comments. It supports
// a fluent API for easy construction.
type CreateTableNode struct {
	// Schema qualifies the table name (optional)
	Schema string
	// Name is the name of the table to create
	Name string
	// Columns contains all column definitions for the table
	Columns []*ColumnNode
	// Constraints contains table-level constraints (PRIMARY KEY, UNIQUE, FOREIGN KEY, CHECK)
	Constraints []*ConstraintNode
	// Options contains dialect-specific table options like ENGINE for MySQL
	Options map[string]string
	// Comment is an optional table comment
	Comment string
}

// NewCreateTable creates a new CREATE TABLE node with the specified table name.
//
// The returned node has empty slices for columns and constraints, and an empty
// options map. Use the fluent API methods to add columns, constraints, and options.
//
// Example:
//
//	table := NewCreateTable("users")
func NewCreateTable(name string) *CreateTableNode {
	return &CreateTableNode{
		Name:        name,
		Columns:     make([]*ColumnNode, 0),
		Constraints: make([]*ConstraintNode, 0),
		Options:     make(map[string]string),
	}
}

// Accept implements the Node interface for CreateTableNode.
func (n *CreateTableNode) Accept(visitor Visitor) error {
	return visitor.VisitCreateTable(n)
}

// AddColumn adds a column to the CREATE TABLE statement and returns the table node for chaining.
//
// Example:
//
//	table.AddColumn(NewColumn("id", "INTEGER").SetPrimary())
func (n *CreateTableNode) AddColumn(column *ColumnNode) *CreateTableNode {
	n.Columns = append(n.Columns, column)
	return n
}

// AddConstraint adds a table-level constraint and returns the table node for chaining.
//
// Example:
//
//	table.AddConstraint(NewUniqueConstraint("uk_email", "email"))
func (n *CreateTableNode) AddConstraint(constraint *ConstraintNode) *CreateTableNode {
	n.Constraints = append(n.Constraints, constraint)
	return n
}

// SetOption sets a dialect-specific table option and returns the table node for chaining.
//
// Example:
//
//	table.SetOption("ENGINE", "InnoDB")
func (n *CreateTableNode) SetOption(key, value string) *CreateTableNode {
	n.Options[key] = value
	return n
}

// SetComment sets the table comment and returns the table node for chaining.
func (n *CreateTableNode) SetComment(comment string) *CreateTableNode {
	n.Comment = comment
	return n
}

// InSchema returns a deep copy of the table qualified with the given schema.
// The receiver is left untouched so one definition can be materialized many times.
func (n *CreateTableNode) InSchema(schema string) *CreateTableNode {
	cp := &CreateTableNode{
		Schema:      schema,
		Name:        n.Name,
		Columns:     make([]*ColumnNode, 0, len(n.Columns)),
		Constraints: make([]*ConstraintNode, 0, len(n.Constraints)),
		Options:     make(map[string]string, len(n.Options)),
		Comment:     n.Comment,
	}
	for _, col := range n.Columns {
		colCopy := *col
		if col.Default != nil {
			def := *col.Default
			colCopy.Default = &def
		}
		if col.ForeignKey != nil {
			ref := *col.ForeignKey
			colCopy.ForeignKey = &ref
		}
		cp.Columns = append(cp.Columns, &colCopy)
	}
	for _, con := range n.Constraints {
		conCopy := *con
		conCopy.Columns = append([]string(nil), con.Columns...)
		if con.Reference != nil {
			ref := *con.Reference
			conCopy.Reference = &ref
		}
		cp.Constraints = append(cp.Constraints, &conCopy)
	}
	for k, v := range n.Options {
		cp.Options[k] = v
	}
	return cp
}

// ColumnNode represents a table column definition with all its attributes.
//
// Types are written in a portable vocabulary (BIGINT, INTEGER, VARCHAR(n),
// TEXT, BOOLEAN, TIMESTAMP, UUID, JSON); each renderer maps them to the
// dialect's native types.
type ColumnNode struct {
	// Name is the column name
	Name string
	// Type is the column data type (e.g., "INTEGER", "VARCHAR(255)", "TIMESTAMP")
	Type string
	// Nullable indicates whether the column allows NULL values (default: true)
	Nullable bool
	// Primary indicates whether this column is part of the primary key
	Primary bool
	// Unique indicates whether this column has a unique constraint
	Unique bool
	// AutoInc indicates whether this column is auto-incrementing
	AutoInc bool
	// Default contains the default value specification (literal or function)
	Default *DefaultValue
	// Check contains a check constraint expression for this column
	Check string
	// Comment is an optional column comment
	Comment string
	// ForeignKey contains foreign key reference information if this column references another table
	ForeignKey *ForeignKeyRef
}

// NewColumn creates a new column node with the specified name and data type.
//
// The column is created with nullable=true by default. Use the fluent API
// methods to configure other properties.
//
// Example:
//
//	column := NewColumn("email", "VARCHAR(255)")
func NewColumn(name, dataType string) *ColumnNode {
	return &ColumnNode{
		Name:     name,
		Type:     dataType,
		Nullable: true, // Default to nullable
	}
}

// Accept implements the Node interface for ColumnNode.
func (n *ColumnNode) Accept(visitor Visitor) error {
	return visitor.VisitColumn(n)
}

// SetPrimary marks the column as a primary key and returns the column for chaining.
//
// Setting a column as primary automatically makes it NOT NULL, as primary keys
// cannot contain NULL values in SQL.
func (n *ColumnNode) SetPrimary() *ColumnNode {
	n.Primary = true
	n.Nullable = false // Primary keys are always NOT NULL
	return n
}

// SetNotNull marks the column as NOT NULL and returns the column for chaining.
func (n *ColumnNode) SetNotNull() *ColumnNode {
	n.Nullable = false
	return n
}

// SetUnique marks the column as UNIQUE and returns the column for chaining.
//
// This creates a column-level unique constraint. For multi-column unique
// constraints, use table-level constraints instead.
func (n *ColumnNode) SetUnique() *ColumnNode {
	n.Unique = true
	return n
}

// SetAutoIncrement marks the column as auto-incrementing and returns the column for chaining.
//
// Auto-increment behavior varies by database:
//   - MySQL/MariaDB: AUTO_INCREMENT
//   - PostgreSQL: SERIAL / BIGSERIAL
func (n *ColumnNode) SetAutoIncrement() *ColumnNode {
	n.AutoInc = true
	return n
}

// SetDefault sets a literal default value and returns the column for chaining.
//
// The value should be properly quoted for string literals (e.g., "'active'").
// For function calls, use SetDefaultExpression instead.
func (n *ColumnNode) SetDefault(value string) *ColumnNode {
	n.Default = &DefaultValue{Value: value}
	return n
}

// SetDefaultExpression sets a function as the default value and returns the column for chaining.
//
// Example:
//
//	column.SetDefaultExpression("CURRENT_TIMESTAMP")
func (n *ColumnNode) SetDefaultExpression(fn string) *ColumnNode {
	n.Default = &DefaultValue{Expression: fn}
	return n
}

// SetCheck sets a check constraint expression and returns the column for chaining.
//
// Example:
//
//	column.SetCheck("status IN ('active', 'inactive')")
func (n *ColumnNode) SetCheck(expression string) *ColumnNode {
	n.Check = expression
	return n
}

// SetComment sets a column comment and returns the column for chaining.
func (n *ColumnNode) SetComment(comment string) *ColumnNode {
	n.Comment = comment
	return n
}

// SetForeignKey sets a foreign key reference and returns the column for chaining.
//
// This creates a column-level foreign key constraint. The name parameter
// is the constraint name.
//
// Example:
//
//	column.SetForeignKey("users", "id", "fk_orders_user")
func (n *ColumnNode) SetForeignKey(table, column, name string) *ColumnNode {
	n.ForeignKey = &ForeignKeyRef{
		Table:  table,
		Column: column,
		Name:   name,
	}
	return n
}

// ConstraintNode represents table-level constraints (PRIMARY KEY, UNIQUE, FOREIGN KEY, CHECK).
//
// Table-level constraints can span multiple columns and are defined separately
// from column definitions.
type ConstraintNode struct {
	// Type specifies the constraint type (PRIMARY KEY, UNIQUE, etc.)
	Type ConstraintType
	// Name is the constraint name (optional for some constraint types)
	Name string
	// Columns contains the list of column names involved in the constraint
	Columns []string
	// Reference contains foreign key reference information (only for FOREIGN KEY constraints)
	Reference *ForeignKeyRef
	// Expression contains the check expression (only for CHECK constraints)
	Expression string
}

// Accept implements the Node interface for ConstraintNode.
func (n *ConstraintNode) Accept(visitor Visitor) error {
	return visitor.VisitConstraint(n)
}

// IndexNode represents a CREATE INDEX statement.
type IndexNode struct {
	// Schema qualifies the indexed table (optional)
	Schema string
	// Name is the index name
	Name string
	// Table is the name of the table to index
	Table string
	// Columns contains the list of column names to include in the index
	Columns []string
	// Unique indicates whether this is a unique index
	Unique bool
	// Comment is an optional index comment
	Comment string
}

// NewIndex creates a new index node.
//
// Example:
//
//	index := NewIndex("idx_articles_status", "articles", "status")
func NewIndex(name, table string, columns ...string) *IndexNode {
	return &IndexNode{
		Name:    name,
		Table:   table,
		Columns: columns,
	}
}

// Accept implements the Node interface for IndexNode.
func (n *IndexNode) Accept(visitor Visitor) error {
	return visitor.VisitIndex(n)
}

// SetUnique marks the index as unique and returns it for chaining.
func (n *IndexNode) SetUnique() *IndexNode {
	n.Unique = true
	return n
}

// InSchema returns a copy of the index qualified with the given schema.
func (n *IndexNode) InSchema(schema string) *IndexNode {
	cp := *n
	cp.Schema = schema
	cp.Columns = append([]string(nil), n.Columns...)
	return &cp
}

// CommentNode represents a standalone SQL comment line.
type CommentNode struct {
	Text string
}

// NewComment creates a new comment node.
func NewComment(text string) *CommentNode {
	return &CommentNode{Text: text}
}

// Accept implements the Node interface for CommentNode.
func (n *CommentNode) Accept(visitor Visitor) error {
	return visitor.VisitComment(n)
}
