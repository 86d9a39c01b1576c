package mysql_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/tenancy/core/ast"
	"github.com/stokaro/tenancy/core/platform"
	"github.com/stokaro/tenancy/core/renderer/dialects/mysql"
)

func TestMySQLRenderer_Dialect(t *testing.T) {
	c := qt.New(t)
	c.Assert(mysql.New().Dialect(), qt.Equals, platform.MySQL)
}

func TestMySQLRenderer_VisitCreateSchema(t *testing.T) {
	c := qt.New(t)
	sql, err := mysql.New().Render(ast.NewCreateSchema("tenant_acme"))
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Equals, "CREATE DATABASE `tenant_acme` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci;\n")
}

func TestMySQLRenderer_VisitCreateTable(t *testing.T) {
	c := qt.New(t)

	uploader := ast.NewColumn("uploaded_by", "BIGINT").SetForeignKey("users", "id", "fk_media_uploader")
	uploader.ForeignKey.OnDelete = ast.SetNull

	table := ast.NewCreateTable("media").
		AddColumn(ast.NewColumn("id", "BIGINT").SetPrimary().SetAutoIncrement()).
		AddColumn(ast.NewColumn("tenant_id", "UUID").SetNotNull()).
		AddColumn(ast.NewColumn("created_at", "TIMESTAMP").SetNotNull().SetDefaultExpression("CURRENT_TIMESTAMP")).
		AddColumn(uploader).
		SetComment("Uploaded files")

	sql, err := mysql.New().Render(table.InSchema("tenant_acme"))
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Equals, "CREATE TABLE `tenant_acme`.`media` (\n"+
		"  `id` BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,\n"+
		"  `tenant_id` CHAR(36) NOT NULL,\n"+
		"  `created_at` DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),\n"+
		"  `uploaded_by` BIGINT,\n"+
		"  CONSTRAINT `fk_media_uploader` FOREIGN KEY (`uploaded_by`) REFERENCES `tenant_acme`.`users` (`id`) ON DELETE SET NULL\n"+
		") DEFAULT CHARSET=utf8mb4 ENGINE=InnoDB COMMENT='Uploaded files';\n")
}

func TestMySQLRenderer_TableOptionsOverride(t *testing.T) {
	c := qt.New(t)

	table := ast.NewCreateTable("tags").
		AddColumn(ast.NewColumn("id", "BIGINT").SetPrimary()).
		SetOption("engine", "MyISAM")

	sql, err := mysql.New().Render(table)
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Contains, ") DEFAULT CHARSET=utf8mb4 ENGINE=MyISAM;")
}

func TestMySQLRenderer_CompositePrimaryKey(t *testing.T) {
	c := qt.New(t)

	table := ast.NewCreateTable("article_tags").
		AddColumn(ast.NewColumn("article_id", "BIGINT").SetNotNull()).
		AddColumn(ast.NewColumn("tag_id", "BIGINT").SetNotNull()).
		AddConstraint(ast.NewPrimaryKeyConstraint("article_id", "tag_id"))

	sql, err := mysql.New().Render(table)
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Contains, "  PRIMARY KEY (`article_id`, `tag_id`)\n")
}

func TestMySQLRenderer_VisitIndexAndDrop(t *testing.T) {
	c := qt.New(t)

	sql, err := mysql.New().Render(ast.NewIndex("idx_comments_status", "comments", "status").InSchema("tenant_acme"))
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Equals, "CREATE INDEX `idx_comments_status` ON `tenant_acme`.`comments` (`status`);\n")

	sql, err = mysql.New().Render(ast.NewDropSchema("tenant_acme").SetIfExists().SetCascade())
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Equals, "DROP DATABASE IF EXISTS `tenant_acme`;\n")
}
