package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ncruces/go-sqlite3"
)

// Dialect captures the SQL differences between the supported backends.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

const (
	checkViolationCode  = "23514"
	stringTooLongCode   = "22001"
	uniqueViolationCode = "23505"
)

func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %q", driver)
	}
}

// Rebind converts $n placeholders into the dialect's positional syntax.
func (d Dialect) Rebind(query string) string {
	if d != SQLite {
		return query
	}
	// SQLite 使用 ?NNN 表示编号参数
	return strings.ReplaceAll(query, "$", "?")
}

// Contains returns a case-sensitive substring predicate for column.
func (d Dialect) Contains(column, placeholder string) string {
	if d == SQLite {
		return fmt.Sprintf("instr(%s, %s) > 0", column, placeholder)
	}
	return fmt.Sprintf("strpos(%s, %s) > 0", column, placeholder)
}

// IsConstraintViolation reports whether err is a check or length constraint
// failure raised by the database.
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == checkViolationCode || pgErr.Code == stringTooLongCode
	}
	var sqliteErr *sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode() == sqlite3.CONSTRAINT_CHECK
	}
	return false
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	var sqliteErr *sqlite3.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.ExtendedCode()
		return code == sqlite3.CONSTRAINT_PRIMARYKEY || code == sqlite3.CONSTRAINT_UNIQUE
	}
	return false
}
