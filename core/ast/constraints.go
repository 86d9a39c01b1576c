package ast

// NewPrimaryKeyConstraint creates a table-level primary key constraint.
//
// This function creates a primary key constraint that spans one or more columns.
// For single-column primary keys, you can also use the SetPrimary() method on
// the column itself.
//
// Example:
//
//	// Composite primary key
//	pk := NewPrimaryKeyConstraint("article_id", "tag_id")
func NewPrimaryKeyConstraint(columns ...string) *ConstraintNode {
	return &ConstraintNode{
		Type:    PrimaryKeyConstraint,
		Columns: columns,
	}
}

// NewUniqueConstraint creates a table-level unique constraint with a name.
//
// Example:
//
//	unique := NewUniqueConstraint("uq_users_email", "email")
func NewUniqueConstraint(name string, columns ...string) *ConstraintNode {
	return &ConstraintNode{
		Type:    UniqueConstraint,
		Name:    name,
		Columns: columns,
	}
}

// NewForeignKeyConstraint creates a table-level foreign key constraint.
//
// Example:
//
//	ref := &ForeignKeyRef{
//		Table:    "articles",
//		Column:   "id",
//		OnDelete: Cascade,
//		Name:     "fk_comments_article",
//	}
//	fk := NewForeignKeyConstraint("fk_comments_article", []string{"article_id"}, ref)
func NewForeignKeyConstraint(name string, columns []string, ref *ForeignKeyRef) *ConstraintNode {
	return &ConstraintNode{
		Type:      ForeignKeyConstraint,
		Name:      name,
		Columns:   columns,
		Reference: ref,
	}
}

// NewCheckConstraint creates a named table-level CHECK constraint.
//
// Example:
//
//	check := NewCheckConstraint("ck_users_role", "role IN ('admin', 'editor')")
func NewCheckConstraint(name, expression string) *ConstraintNode {
	return &ConstraintNode{
		Type:       CheckConstraint,
		Name:       name,
		Expression: expression,
	}
}

// References is a shorthand that builds a foreign key constraint on a single
// column pointing at table.column with the given delete action.
func References(name, column, table, refColumn, onDelete string) *ConstraintNode {
	return NewForeignKeyConstraint(name, []string{column}, &ForeignKeyRef{
		Table:    table,
		Column:   refColumn,
		OnDelete: onDelete,
		Name:     name,
	})
}
