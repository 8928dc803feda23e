// Package gomodel provides a fluent query builder for SQL tables.
package gomodel

import (
	"context"
	"fmt"

	"github.com/CaliLuke/go-modelservice/ast"
)

// trashScope selects how soft-deleted rows are treated.
type trashScope int

const (
	withoutTrashed trashScope = iota
	withTrashed
	onlyTrashed
)

// Query provides a chainable, type-safe API for constructing and executing
// queries for a specific model type T.
type Query[T any] struct {
	mgr     *Manager[T]
	filters []Filter
	orderBy []OrderClause
	random  bool
	limit   int
	offset  int
	trash   trashScope
}

// OrderClause specifies a column name and sort direction for query results.
type OrderClause struct {
	Column string
	Desc   bool
}

// Query starts a new query over the model's table.
// Soft-deleted rows are excluded unless WithTrashed or OnlyTrashed is used.
func (m *Manager[T]) Query() *Query[T] {
	return &Query[T]{mgr: m}
}

// Filter adds one or more filtering conditions to the query.
// Multiple calls to Filter are combined using logical AND.
func (q *Query[T]) Filter(filters ...Filter) *Query[T] {
	for _, f := range filters {
		if f != nil {
			q.filters = append(q.filters, f)
		}
	}
	return q
}

// OrderAsc adds an ascending sort order on the specified column.
func (q *Query[T]) OrderAsc(column string) *Query[T] {
	q.orderBy = append(q.orderBy, OrderClause{Column: column, Desc: false})
	return q
}

// OrderDesc adds a descending sort order on the specified column.
func (q *Query[T]) OrderDesc(column string) *Query[T] {
	q.orderBy = append(q.orderBy, OrderClause{Column: column, Desc: true})
	return q
}

// InRandomOrder sorts results randomly, after any explicit order terms.
func (q *Query[T]) InRandomOrder() *Query[T] {
	q.random = true
	return q
}

// Limit restricts the number of results returned by the query.
func (q *Query[T]) Limit(n int) *Query[T] {
	q.limit = n
	return q
}

// Offset skips the first n results returned by the query.
func (q *Query[T]) Offset(n int) *Query[T] {
	q.offset = n
	return q
}

// WithTrashed includes soft-deleted rows.
func (q *Query[T]) WithTrashed() *Query[T] {
	q.trash = withTrashed
	return q
}

// OnlyTrashed restricts the query to soft-deleted rows.
func (q *Query[T]) OnlyTrashed() *Query[T] {
	q.trash = onlyTrashed
	return q
}

// Exists returns true if the query matches at least one row.
func (q *Query[T]) Exists(ctx context.Context) (bool, error) {
	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// All executes the query and returns all matching instances as a slice of pointers to T.
func (q *Query[T]) All(ctx context.Context) ([]*T, error) {
	return q.Execute(ctx)
}

// Execute performs the query against the database and hydrates the results into Go structs.
func (q *Query[T]) Execute(ctx context.Context) ([]*T, error) {
	if err := checkCtx(ctx, "query", q.mgr.info.TypeName); err != nil {
		return nil, err
	}
	rows, err := q.mgr.db.Query(ctx, q.buildSelect())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.mgr.info.TypeName, err)
	}
	results, err := scanRows[T](q.mgr.info, rows)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.mgr.info.TypeName, err)
	}
	return results, nil
}

// First executes the query with a limit of 1 and returns the first result, or nil if none found.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	q.limit = 1
	results, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// Count returns the number of rows matching the query filters.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	if err := checkCtx(ctx, "count", q.mgr.info.TypeName); err != nil {
		return 0, err
	}
	n, err := q.mgr.db.QueryInt(ctx, ast.CountFrom(q.mgr.info.Table, q.where()))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.mgr.info.TypeName, err)
	}
	return n, nil
}

// Delete removes all rows that match the query filters and returns how many
// were affected. Soft-deleting models are stamped instead of removed.
func (q *Query[T]) Delete(ctx context.Context) (int64, error) {
	if df, ok := q.mgr.info.DeletedField(); ok && q.trash != onlyTrashed {
		q.trash = withoutTrashed
		return q.exec(ctx, "delete", ast.Update{
			Table: q.mgr.info.Table,
			Set:   []ast.Assignment{{Column: df.Tag.Name, Value: q.mgr.now()}},
			Where: q.where(),
		})
	}
	return q.ForceDelete(ctx)
}

// ForceDelete permanently removes every matching row.
func (q *Query[T]) ForceDelete(ctx context.Context) (int64, error) {
	return q.exec(ctx, "delete", ast.Delete{Table: q.mgr.info.Table, Where: q.where()})
}

// Update sets columns on every matching row. Keys are column names.
func (q *Query[T]) Update(ctx context.Context, updates map[string]any) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	set, err := q.mgr.assignments(updates)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", q.mgr.info.TypeName, err)
	}
	if uf, ok := q.mgr.info.UpdatedField(); ok {
		if _, explicit := updates[uf.Tag.Name]; !explicit {
			set = append(set, ast.Assignment{Column: uf.Tag.Name, Value: q.mgr.now()})
		}
	}
	if len(set) == 0 {
		return 0, nil
	}
	return q.exec(ctx, "update", ast.Update{Table: q.mgr.info.Table, Set: set, Where: q.where()})
}

func (q *Query[T]) exec(ctx context.Context, op string, stmt ast.Statement) (int64, error) {
	if err := checkCtx(ctx, op, q.mgr.info.TypeName); err != nil {
		return 0, err
	}
	res, err := q.mgr.db.Exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", op, q.mgr.info.TypeName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return n, nil
}

// --- Statement building ---

func (q *Query[T]) where() ast.Expr {
	exprs := make([]ast.Expr, 0, len(q.filters)+1)
	if df, ok := q.mgr.info.DeletedField(); ok {
		switch q.trash {
		case withoutTrashed:
			exprs = append(exprs, ast.Null(df.Tag.Name))
		case onlyTrashed:
			exprs = append(exprs, ast.NotNull(df.Tag.Name))
		}
	}
	for _, f := range q.filters {
		exprs = append(exprs, f.Expr())
	}
	if len(exprs) == 0 {
		return nil
	}
	return ast.AllOf(exprs...)
}

func (q *Query[T]) buildSelect() ast.Select {
	order := make([]ast.OrderTerm, len(q.orderBy))
	for i, o := range q.orderBy {
		order[i] = ast.OrderTerm{Column: o.Column, Desc: o.Desc}
	}
	return ast.Select{
		Table:   q.mgr.info.Table,
		Columns: q.mgr.info.Columns(),
		Where:   q.where(),
		OrderBy: order,
		Random:  q.random,
		Limit:   q.limit,
		Offset:  q.offset,
	}
}
