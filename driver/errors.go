package driver

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

// PostgreSQL error codes
const (
	pgUniqueViolation = "23505"
)

// ClassifyError maps backend unique and primary-key violations to
// *gomodel.UniqueViolationError. Other errors are returned unchanged.
// It satisfies gomodel.ErrorClassifier.
func ClassifyError(table string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if pgErr.TableName != "" {
			table = pgErr.TableName
		}
		return &gomodel.UniqueViolationError{Table: table, Constraint: pgErr.ConstraintName, Cause: err}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &gomodel.UniqueViolationError{Table: table, Cause: err}
		case sqlite3.SQLITE_CONSTRAINT:
			// Connections without extended result codes only report the primary code.
			if strings.Contains(liteErr.Error(), "UNIQUE constraint failed") {
				return &gomodel.UniqueViolationError{Table: table, Cause: err}
			}
		}
	}
	return err
}

// IsUniqueViolation reports whether err is, or wraps, a unique violation.
func IsUniqueViolation(err error) bool {
	var uv *gomodel.UniqueViolationError
	return errors.As(err, &uv)
}
