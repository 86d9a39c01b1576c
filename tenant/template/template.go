// Package template holds the table layout every tenant schema is built from.
//
// The layout is a single ordered list of table definitions. Tables are
// listed so that every foreign key points at a table created earlier, which
// lets the provisioner execute them in order inside one transaction.
// Definitions are schema-less; Materialize qualifies a copy of each of them
// with the tenant schema.
package template

import (
	"fmt"

	"github.com/stokaro/tenancy/core/ast"
	"github.com/stokaro/tenancy/core/renderer"
)

// Version identifies the table layout. Schemas are created once with the
// layout of the version current at provisioning time and never altered.
const Version = 1

const (
	TableUsers       = "users"
	TableCategories  = "categories"
	TableTags        = "tags"
	TableArticles    = "articles"
	TableArticleTags = "article_tags"
	TableComments    = "comments"
	TableMedia       = "media"
)

var tableNames = []string{
	TableUsers,
	TableCategories,
	TableTags,
	TableArticles,
	TableArticleTags,
	TableComments,
	TableMedia,
}

// TableNames returns the table names in creation order.
func TableNames() []string {
	return append([]string(nil), tableNames...)
}

// Tables returns fresh definitions of every tenant table in creation order.
func Tables() []*ast.CreateTableNode {
	return []*ast.CreateTableNode{
		usersTable(),
		categoriesTable(),
		tagsTable(),
		articlesTable(),
		articleTagsTable(),
		commentsTable(),
		mediaTable(),
	}
}

// Indexes returns the secondary indexes of the tenant tables.
func Indexes() []*ast.IndexNode {
	return []*ast.IndexNode{
		ast.NewIndex("idx_articles_status", TableArticles, "status"),
		ast.NewIndex("idx_articles_author_id", TableArticles, "author_id"),
		ast.NewIndex("idx_articles_category_id", TableArticles, "category_id"),
		ast.NewIndex("idx_comments_article_id", TableComments, "article_id"),
		ast.NewIndex("idx_comments_status", TableComments, "status"),
	}
}

// Materialize returns the nodes that create a complete tenant schema: the
// schema itself, every table and every index, all qualified with schema.
func Materialize(schema string) []ast.Node {
	return append([]ast.Node{ast.NewCreateSchema(schema)}, Objects(schema)...)
}

// Objects returns the table and index nodes qualified with schema, without
// the CREATE SCHEMA node.
func Objects(schema string) []ast.Node {
	tables := Tables()
	indexes := Indexes()
	nodes := make([]ast.Node, 0, len(tables)+len(indexes))
	for _, t := range tables {
		nodes = append(nodes, t.InSchema(schema))
	}
	for _, idx := range indexes {
		nodes = append(nodes, idx.InSchema(schema))
	}
	return nodes
}

// Render renders the statements that create the tenant schema for the
// dialect. The first statement creates the schema; the rest create tables and
// indexes. Each element is a single statement without a trailing semicolon.
func Render(dialect, schema string) ([]string, error) {
	statements, err := renderer.RenderStatements(dialect, Materialize(schema)...)
	if err != nil {
		return nil, fmt.Errorf("failed to render tenant schema %s: %w", schema, err)
	}
	return statements, nil
}

func timestamps(t *ast.CreateTableNode, updated bool) {
	t.AddColumn(ast.NewColumn("created_at", "TIMESTAMP").SetNotNull().SetDefaultExpression("CURRENT_TIMESTAMP"))
	if updated {
		t.AddColumn(ast.NewColumn("updated_at", "TIMESTAMP").SetNotNull().SetDefaultExpression("CURRENT_TIMESTAMP"))
	}
}

func counter(name string) *ast.ColumnNode {
	return ast.NewColumn(name, "INTEGER").SetNotNull().SetDefault("0")
}

func usersTable() *ast.CreateTableNode {
	t := ast.NewCreateTable(TableUsers).
		SetComment("Accounts of one tenant").
		AddColumn(ast.NewColumn("id", "BIGINT").SetPrimary().SetAutoIncrement()).
		AddColumn(ast.NewColumn("tenant_id", "UUID").SetNotNull()).
		AddColumn(ast.NewColumn("email", "VARCHAR(255)").SetNotNull()).
		AddColumn(ast.NewColumn("password_hash", "VARCHAR(255)").SetNotNull()).
		AddColumn(ast.NewColumn("name", "VARCHAR(255)").SetNotNull()).
		AddColumn(ast.NewColumn("role", "VARCHAR(20)").SetNotNull().SetDefault("'author'")).
		AddColumn(ast.NewColumn("status", "VARCHAR(20)").SetNotNull().SetDefault("'active'"))
	timestamps(t, true)
	return t.
		AddColumn(ast.NewColumn("last_login_at", "TIMESTAMP")).
		AddConstraint(ast.NewUniqueConstraint("uq_users_email", "email")).
		AddConstraint(ast.NewCheckConstraint("ck_users_role", "role IN ('admin', 'editor', 'author', 'reviewer')")).
		AddConstraint(ast.NewCheckConstraint("ck_users_status", "status IN ('active', 'inactive', 'suspended')"))
}

func categoriesTable() *ast.CreateTableNode {
	t := ast.NewCreateTable(TableCategories).
		AddColumn(ast.NewColumn("id", "BIGINT").SetPrimary().SetAutoIncrement()).
		AddColumn(ast.NewColumn("name", "VARCHAR(255)").SetNotNull()).
		AddColumn(ast.NewColumn("slug", "VARCHAR(255)").SetNotNull()).
		AddColumn(ast.NewColumn("description", "TEXT")).
		AddColumn(ast.NewColumn("parent_id", "BIGINT")).
		AddColumn(counter("sort_order")).
		AddColumn(counter("article_count"))
	timestamps(t, false)
	return t.
		AddConstraint(ast.NewUniqueConstraint("uq_categories_slug", "slug")).
		AddConstraint(ast.References("fk_categories_parent", "parent_id", TableCategories, "id", ast.SetNull))
}

func tagsTable() *ast.CreateTableNode {
	t := ast.NewCreateTable(TableTags).
		AddColumn(ast.NewColumn("id", "BIGINT").SetPrimary().SetAutoIncrement()).
		AddColumn(ast.NewColumn("name", "VARCHAR(100)").SetNotNull()).
		AddColumn(ast.NewColumn("slug", "VARCHAR(100)").SetNotNull()).
		AddColumn(ast.NewColumn("color", "VARCHAR(7)")).
		AddColumn(counter("article_count"))
	timestamps(t, false)
	return t.AddConstraint(ast.NewUniqueConstraint("uq_tags_slug", "slug"))
}

func articlesTable() *ast.CreateTableNode {
	t := ast.NewCreateTable(TableArticles).
		AddColumn(ast.NewColumn("id", "BIGINT").SetPrimary().SetAutoIncrement()).
		AddColumn(ast.NewColumn("title", "VARCHAR(500)").SetNotNull()).
		AddColumn(ast.NewColumn("slug", "VARCHAR(500)").SetNotNull()).
		AddColumn(ast.NewColumn("excerpt", "TEXT")).
		AddColumn(ast.NewColumn("content", "TEXT").SetNotNull()).
		AddColumn(ast.NewColumn("status", "VARCHAR(20)").SetNotNull().SetDefault("'draft'")).
		AddColumn(ast.NewColumn("author_id", "BIGINT").SetNotNull()).
		AddColumn(ast.NewColumn("category_id", "BIGINT")).
		AddColumn(counter("view_count")).
		AddColumn(counter("like_count")).
		AddColumn(counter("comment_count")).
		AddColumn(ast.NewColumn("reading_time_minutes", "INTEGER")).
		AddColumn(ast.NewColumn("published_at", "TIMESTAMP")).
		AddColumn(ast.NewColumn("scheduled_at", "TIMESTAMP"))
	timestamps(t, true)
	return t.
		AddConstraint(ast.NewUniqueConstraint("uq_articles_slug", "slug")).
		AddConstraint(ast.NewCheckConstraint("ck_articles_status", "status IN ('draft', 'published', 'scheduled', 'archived')")).
		AddConstraint(ast.References("fk_articles_author", "author_id", TableUsers, "id", ast.Restrict)).
		AddConstraint(ast.References("fk_articles_category", "category_id", TableCategories, "id", ast.SetNull))
}

func articleTagsTable() *ast.CreateTableNode {
	return ast.NewCreateTable(TableArticleTags).
		AddColumn(ast.NewColumn("article_id", "BIGINT").SetNotNull()).
		AddColumn(ast.NewColumn("tag_id", "BIGINT").SetNotNull()).
		AddConstraint(ast.NewPrimaryKeyConstraint("article_id", "tag_id")).
		AddConstraint(ast.References("fk_article_tags_article", "article_id", TableArticles, "id", ast.Cascade)).
		AddConstraint(ast.References("fk_article_tags_tag", "tag_id", TableTags, "id", ast.Cascade))
}

func commentsTable() *ast.CreateTableNode {
	t := ast.NewCreateTable(TableComments).
		AddColumn(ast.NewColumn("id", "BIGINT").SetPrimary().SetAutoIncrement()).
		AddColumn(ast.NewColumn("article_id", "BIGINT").SetNotNull()).
		AddColumn(ast.NewColumn("parent_id", "BIGINT")).
		AddColumn(ast.NewColumn("author_name", "VARCHAR(255)").SetNotNull()).
		AddColumn(ast.NewColumn("author_email", "VARCHAR(255)").SetNotNull()).
		AddColumn(ast.NewColumn("content", "TEXT").SetNotNull()).
		AddColumn(ast.NewColumn("status", "VARCHAR(20)").SetNotNull().SetDefault("'pending'"))
	timestamps(t, true)
	return t.
		AddConstraint(ast.NewCheckConstraint("ck_comments_status", "status IN ('pending', 'approved', 'rejected', 'spam')")).
		AddConstraint(ast.References("fk_comments_article", "article_id", TableArticles, "id", ast.Cascade)).
		AddConstraint(ast.References("fk_comments_parent", "parent_id", TableComments, "id", ast.Cascade))
}

func mediaTable() *ast.CreateTableNode {
	t := ast.NewCreateTable(TableMedia).
		AddColumn(ast.NewColumn("id", "BIGINT").SetPrimary().SetAutoIncrement()).
		AddColumn(ast.NewColumn("filename", "VARCHAR(255)").SetNotNull()).
		AddColumn(ast.NewColumn("mime_type", "VARCHAR(100)").SetNotNull()).
		AddColumn(ast.NewColumn("size_bytes", "BIGINT").SetNotNull()).
		AddColumn(ast.NewColumn("url", "VARCHAR(1000)").SetNotNull()).
		AddColumn(ast.NewColumn("alt_text", "VARCHAR(500)")).
		AddColumn(ast.NewColumn("uploaded_by", "BIGINT"))
	timestamps(t, false)
	return t.AddConstraint(ast.References("fk_media_uploaded_by", "uploaded_by", TableUsers, "id", ast.SetNull))
}
