package platform

import (
	"strings"
)

const (
	Postgres = "postgres"
	MySQL    = "mysql"
	MariaDB  = "mariadb"
)

func NormalizeDialect(dialect string) string {
	switch strings.ToLower(dialect) {
	case "pgx", "postgresql", "postgres":
		return Postgres
	case "mysql":
		return MySQL
	case "mariadb":
		return MariaDB
	default:
		return ""
	}
}

// IsMySQLLike reports whether the dialect follows MySQL semantics, where a
// schema is a database and identifiers are quoted with backticks.
func IsMySQLLike(dialect string) bool {
	d := NormalizeDialect(dialect)
	return d == MySQL || d == MariaDB
}

// SupportsTransactionalDDL reports whether CREATE SCHEMA and CREATE TABLE
// participate in the surrounding transaction. MySQL commits implicitly on DDL.
func SupportsTransactionalDDL(dialect string) bool {
	return NormalizeDialect(dialect) == Postgres
}
