package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrTx marks failures of the transaction itself (begin/commit), as opposed
// to errors returned by the work function.
var ErrTx = errors.New("db transaction failed")

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is provided the violation must reference it.
// Postgres errors are matched by SQLSTATE through pgx or lib/pq; other
// drivers (sqlite in tests) fall back to message inspection.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && matchesConstraint(pgErr.ConstraintName, constraintName)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation && matchesConstraint(pqErr.Constraint, constraintName)
	}

	msg := err.Error()
	if idx := strings.Index(msg, sqliteUniquePrefix); idx >= 0 {
		return matchesSQLiteColumns(msg[idx+len(sqliteUniquePrefix):], constraintName)
	}
	if !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

const sqliteUniquePrefix = "UNIQUE constraint failed: "

// matchesSQLiteColumns checks a sqlite "table.col, table.col" list against a
// constraint named after its table (ux_<table>_...), or names a column.
func matchesSQLiteColumns(columns, constraintName string) bool {
	if constraintName == "" {
		return true
	}
	if strings.Contains(columns, constraintName) {
		return true
	}
	table, _, ok := strings.Cut(strings.TrimSpace(columns), ".")
	return ok && strings.HasPrefix(constraintName, "ux_"+table+"_")
}

func matchesConstraint(actual, want string) bool {
	return want == "" || actual == want
}
