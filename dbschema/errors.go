package dbschema

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation   = "23505"
	pgDuplicateSchema   = "42P06"
	pgDuplicateTable    = "42P07"
	pgInvalidSchemaName = "3F000"

	mysqlDatabaseExists   = 1007
	mysqlUnknownDatabase  = 1049
	mysqlTableExists      = 1050
	mysqlDuplicateKeyName = 1061
	mysqlDuplicateEntry   = 1062
)

// UniqueViolation reports whether err is a unique constraint violation and,
// when the driver exposes it, the name of the violated constraint.
func UniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return pqErr.Constraint, true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return mysqlKeyName(myErr.Message), true
	}
	return "", false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	_, ok := UniqueViolation(err)
	return ok
}

// IsDuplicateSchema reports whether err says the schema (a database on
// MySQL) already exists.
func IsDuplicateSchema(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateSchema
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgDuplicateSchema
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDatabaseExists
	}
	return false
}

// IsDuplicateObject reports whether err says a table or index already exists.
func IsDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateTable
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgDuplicateTable
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlTableExists || myErr.Number == mysqlDuplicateKeyName
	}
	return false
}

// IsUnknownSchema reports whether err says the schema does not exist.
func IsUnknownSchema(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgInvalidSchemaName
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgInvalidSchemaName
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlUnknownDatabase
	}
	return false
}

// mysqlKeyName extracts the key from "Duplicate entry 'x' for key 'tenants.uq_name'".
// MySQL 8 prefixes the key with the table name.
func mysqlKeyName(message string) string {
	const marker = "for key '"
	i := strings.LastIndex(message, marker)
	if i < 0 {
		return ""
	}
	key := strings.TrimSuffix(message[i+len(marker):], "'")
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	return key
}
