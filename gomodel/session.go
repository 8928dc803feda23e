// Package gomodel provides a high-level, struct-tag based ORM layer for SQL stores.
// It maps Go structs to tables, providing generic CRUD operations
// and automatic statement generation.
package gomodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/CaliLuke/go-modelservice/ast"
)

// Conn is the interface for a SQL connection. *sql.DB, *sql.Conn and *sql.Tx
// satisfy it.
type Conn interface {
	// ExecContext runs a statement that returns no rows.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	// QueryContext runs a statement that returns rows.
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TxBeginner is implemented by connections able to open transactions.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// QueryEvent describes one round trip to the store.
type QueryEvent struct {
	// Operation is the statement kind ("select", "insert", ...).
	Operation string
	// Table is the target table.
	Table string
	// SQL is the compiled statement.
	SQL string
	// Args are the bound arguments.
	Args []any
	// Duration is the time spent in the driver call.
	Duration time.Duration
	// Err is the driver error, if any.
	Err error
}

// QueryObserver is notified after every round trip.
type QueryObserver interface {
	ObserveQuery(ctx context.Context, ev QueryEvent)
}

// QueryObserverFunc adapts a function to QueryObserver.
type QueryObserverFunc func(ctx context.Context, ev QueryEvent)

// ObserveQuery calls f(ctx, ev).
func (f QueryObserverFunc) ObserveQuery(ctx context.Context, ev QueryEvent) { f(ctx, ev) }

// ErrorClassifier maps a driver error to a typed error such as
// *UniqueViolationError. It returns err unchanged when it does not apply.
type ErrorClassifier func(table string, err error) error

// Database represents a high-level handle to a SQL store, compiling AST
// statements for its dialect and notifying observers of each round trip.
type Database struct {
	conn      Conn
	dialect   ast.Dialect
	compiler  *ast.Compiler
	observers []QueryObserver
	classify  ErrorClassifier
	closer    io.Closer
	inTx      bool
}

// DatabaseOption configures a Database.
type DatabaseOption func(*Database)

// WithObserver adds a query observer.
func WithObserver(obs QueryObserver) DatabaseOption {
	return func(db *Database) { db.observers = append(db.observers, obs) }
}

// WithErrorClassifier sets the driver error classifier.
func WithErrorClassifier(fn ErrorClassifier) DatabaseOption {
	return func(db *Database) { db.classify = fn }
}

// WithCloser makes Close release c, typically the owned *sql.DB.
func WithCloser(c io.Closer) DatabaseOption {
	return func(db *Database) { db.closer = c }
}

// NewDatabase creates a new Database handle over conn.
// A nil dialect defaults to SQLite.
func NewDatabase(conn Conn, dialect ast.Dialect, opts ...DatabaseOption) *Database {
	if dialect == nil {
		dialect = ast.SQLite
	}
	db := &Database{
		conn:     conn,
		dialect:  dialect,
		compiler: &ast.Compiler{Dialect: dialect},
	}
	for _, o := range opts {
		o(db)
	}
	return db
}

// Close releases the owned connection, if any.
func (db *Database) Close() error {
	if db.closer != nil && !db.inTx {
		return db.closer.Close()
	}
	return nil
}

// Dialect returns the SQL dialect of this database.
func (db *Database) Dialect() ast.Dialect {
	return db.dialect
}

// GetConn returns the underlying Conn implementation.
func (db *Database) GetConn() Conn {
	return db.conn
}

// InTransaction reports whether this handle is bound to a transaction.
func (db *Database) InTransaction() bool {
	return db.inTx
}

// Exec compiles and runs a statement that returns no rows.
func (db *Database) Exec(ctx context.Context, stmt ast.Statement) (sql.Result, error) {
	query, args, err := db.compiler.Compile(stmt)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", ast.Kind(stmt), err)
	}
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, args...)
	db.observe(ctx, stmt, query, args, start, err)
	if err != nil {
		return nil, db.classifyErr(stmt, err)
	}
	return res, nil
}

// Query compiles and runs a statement that returns rows.
// The caller must close the returned rows.
func (db *Database) Query(ctx context.Context, stmt ast.Statement) (*sql.Rows, error) {
	query, args, err := db.compiler.Compile(stmt)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", ast.Kind(stmt), err)
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	db.observe(ctx, stmt, query, args, start, err)
	if err != nil {
		return nil, db.classifyErr(stmt, err)
	}
	return rows, nil
}

// QueryInt runs a statement returning a single integer, such as COUNT(*).
func (db *Database) QueryInt(ctx context.Context, stmt ast.Statement) (int64, error) {
	rows, err := db.Query(ctx, stmt)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// Transaction runs fn inside a transaction, committing when fn returns nil
// and rolling back otherwise. A handle already bound to a transaction runs
// fn directly, so nested calls share the outer transaction.
func (db *Database) Transaction(ctx context.Context, fn func(tx *Database) error) (err error) {
	if db.inTx {
		return fn(db)
	}
	beginner, ok := db.conn.(TxBeginner)
	if !ok {
		return errors.New("transaction: connection does not support transactions")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction: context cancelled: %w", err)
	}
	sqlTx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txdb := &Database{
		conn:      sqlTx,
		dialect:   db.dialect,
		compiler:  db.compiler,
		observers: db.observers,
		classify:  db.classify,
		inTx:      true,
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txdb); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

var savepointSeq atomic.Uint64

// Savepoint runs fn so that its failure undoes only fn's statements. On a
// transaction handle fn is bracketed by SAVEPOINT and RELEASE, or ROLLBACK TO
// when fn fails; the transaction stays usable afterwards even on stores that
// abort it on a failed statement. Without a transaction fn runs directly.
func (db *Database) Savepoint(ctx context.Context, fn func(tx *Database) error) error {
	if !db.inTx {
		return fn(db)
	}
	name := fmt.Sprintf("gomodel_sp_%d", savepointSeq.Add(1))
	if _, err := db.Exec(ctx, ast.Savepoint{Name: name}); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(db); err != nil {
		if _, rbErr := db.Exec(ctx, ast.Savepoint{Name: name, Action: ast.SavepointRollback}); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := db.Exec(ctx, ast.Savepoint{Name: name, Action: ast.SavepointRelease}); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (db *Database) observe(ctx context.Context, stmt ast.Statement, query string, args []any, start time.Time, err error) {
	if len(db.observers) == 0 {
		return
	}
	ev := QueryEvent{
		Operation: ast.Kind(stmt),
		Table:     statementTable(stmt),
		SQL:       query,
		Args:      args,
		Duration:  time.Since(start),
		Err:       err,
	}
	for _, o := range db.observers {
		o.ObserveQuery(ctx, ev)
	}
}

func (db *Database) classifyErr(stmt ast.Statement, err error) error {
	if db.classify == nil {
		return err
	}
	return db.classify(statementTable(stmt), err)
}

func statementTable(stmt ast.Statement) string {
	switch s := stmt.(type) {
	case ast.Select:
		return s.Table
	case ast.Insert:
		return s.Table
	case ast.Update:
		return s.Table
	case ast.Delete:
		return s.Table
	case ast.Truncate:
		return s.Table
	case ast.CreateTable:
		return s.Table
	}
	return ""
}

func checkCtx(ctx context.Context, op, typeName string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s %s: context cancelled: %w", op, typeName, err)
	}
	return nil
}
