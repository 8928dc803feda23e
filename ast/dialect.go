package ast

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the fixed-width UTC layout used to store timestamps as text.
// Fixed width keeps lexical and chronological order identical.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect captures the syntax differences between SQL backends.
type Dialect interface {
	// Name returns the dialect name ("sqlite", "postgres").
	Name() string
	// Placeholder returns the bind marker for the n-th argument, starting at 1.
	Placeholder(n int) string
	// QuoteIdent quotes a table or column name.
	QuoteIdent(name string) string
	// RandomFunc returns the expression used for random ordering.
	RandomFunc() string
	// TruncateSQL returns the statement that empties a quoted table.
	TruncateSQL(quotedTable string) string
	// LimitSQL renders LIMIT/OFFSET. Zero values are omitted.
	LimitSQL(limit, offset int) string
	// ColumnType maps a storage class to a concrete column type.
	ColumnType(kind ColumnKind, autoIncrementKey bool) string
	// AutoIncrementSQL is appended after PRIMARY KEY for store-assigned keys.
	AutoIncrementSQL() string
	// Bind converts a Go value to the form the backend stores.
	Bind(v any) any
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLite is the dialect of sqlite 3.35+ (RETURNING support).
var SQLite Dialect = sqliteDialect{}

type sqliteDialect struct{}

func (sqliteDialect) Name() string                { return "sqlite" }
func (sqliteDialect) Placeholder(int) string      { return "?" }
func (sqliteDialect) QuoteIdent(n string) string  { return quoteDouble(n) }
func (sqliteDialect) RandomFunc() string          { return "RANDOM()" }
func (sqliteDialect) TruncateSQL(t string) string { return "DELETE FROM " + t }
func (sqliteDialect) AutoIncrementSQL() string    { return "AUTOINCREMENT" }

func (sqliteDialect) LimitSQL(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf("LIMIT %d", limit)
	case offset > 0:
		// sqlite requires a LIMIT before OFFSET.
		return fmt.Sprintf("LIMIT -1 OFFSET %d", offset)
	}
	return ""
}

func (sqliteDialect) ColumnType(kind ColumnKind, autoIncrementKey bool) string {
	switch kind {
	case KindInteger, KindBool:
		return "INTEGER"
	case KindReal:
		return "REAL"
	case KindBlob:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func (sqliteDialect) Bind(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(TimeLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(TimeLayout)
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// Postgres is the dialect of PostgreSQL through pgx.
var Postgres Dialect = postgresDialect{}

type postgresDialect struct{}

func (postgresDialect) Name() string                { return "postgres" }
func (postgresDialect) Placeholder(n int) string    { return "$" + strconv.Itoa(n) }
func (postgresDialect) QuoteIdent(n string) string  { return quoteDouble(n) }
func (postgresDialect) RandomFunc() string          { return "RANDOM()" }
func (postgresDialect) TruncateSQL(t string) string { return "TRUNCATE TABLE " + t }
func (postgresDialect) AutoIncrementSQL() string    { return "" }

func (postgresDialect) LimitSQL(limit, offset int) string {
	var parts []string
	if limit > 0 {
		parts = append(parts, fmt.Sprintf("LIMIT %d", limit))
	}
	if offset > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", offset))
	}
	return strings.Join(parts, " ")
}

func (postgresDialect) ColumnType(kind ColumnKind, autoIncrementKey bool) string {
	switch kind {
	case KindInteger:
		if autoIncrementKey {
			return "BIGSERIAL"
		}
		return "BIGINT"
	case KindReal:
		return "DOUBLE PRECISION"
	case KindBool:
		return "BOOLEAN"
	case KindTime:
		return "TIMESTAMPTZ"
	case KindBlob:
		return "BYTEA"
	default:
		return "TEXT"
	}
}

func (postgresDialect) Bind(v any) any {
	if t, ok := v.(*time.Time); ok {
		if t == nil {
			return nil
		}
		return *t
	}
	return v
}

// DialectByName returns the dialect registered under name.
// "pgx" and "postgresql" are accepted as aliases of "postgres".
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}
