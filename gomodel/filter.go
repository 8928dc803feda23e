package gomodel

import (
	"sort"
	"strings"

	"github.com/CaliLuke/go-modelservice/ast"
)

// Filter represents a query filter expression that generates a SQL predicate.
// Filters compose via And, Or, and Not to build complex WHERE clauses.
type Filter interface {
	// Expr returns the predicate as an AST expression.
	Expr() ast.Expr
}

// --- Comparison filters ---

// ComparisonFilter compares a column to a value using a SQL operator.
type ComparisonFilter struct {
	Column string
	Op     string
	Value  any
}

// Expr generates the comparison predicate.
func (f *ComparisonFilter) Expr() ast.Expr {
	return ast.Cmp(f.Column, f.Op, f.Value)
}

// Where creates a comparison filter with an explicit operator.
func Where(column, op string, value any) Filter {
	if op == "==" {
		op = "="
	}
	return &ComparisonFilter{Column: column, Op: op, Value: value}
}

// Eq creates an equality filter: column = value. A nil value tests IS NULL.
func Eq(column string, value any) Filter {
	return &ComparisonFilter{Column: column, Op: "=", Value: value}
}

// Neq creates a not-equal filter: column != value.
func Neq(column string, value any) Filter {
	return &ComparisonFilter{Column: column, Op: "!=", Value: value}
}

// Gt creates a greater-than filter: column > value.
func Gt(column string, value any) Filter {
	return &ComparisonFilter{Column: column, Op: ">", Value: value}
}

// Gte creates a greater-than-or-equal filter: column >= value.
func Gte(column string, value any) Filter {
	return &ComparisonFilter{Column: column, Op: ">=", Value: value}
}

// Lt creates a less-than filter: column < value.
func Lt(column string, value any) Filter {
	return &ComparisonFilter{Column: column, Op: "<", Value: value}
}

// Lte creates a less-than-or-equal filter: column <= value.
func Lte(column string, value any) Filter {
	return &ComparisonFilter{Column: column, Op: "<=", Value: value}
}

// --- String filters ---

// StringFilter matches a column against a LIKE pattern.
type StringFilter struct {
	Column  string
	Pattern string
}

// Expr generates the LIKE predicate.
func (f *StringFilter) Expr() ast.Expr {
	return ast.Like{Column: f.Column, Pattern: f.Pattern}
}

// Contains creates a substring filter.
func Contains(column string, substr string) Filter {
	return &StringFilter{Column: column, Pattern: "%" + escapeLike(substr) + "%"}
}

// Like creates a filter with a raw LIKE pattern (% and _ are wildcards).
func Like(column string, pattern string) Filter {
	return &StringFilter{Column: column, Pattern: pattern}
}

// Startswith creates a prefix filter.
func Startswith(column string, prefix string) Filter {
	return &StringFilter{Column: column, Pattern: escapeLike(prefix) + "%"}
}

// escapeLike strips LIKE wildcards from literal input. Neither backend
// enables an ESCAPE character by default, so wildcards are dropped.
func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}

// --- Set filters ---

// InFilter tests membership in a set of values.
type InFilter struct {
	Column  string
	Values  []any
	Negated bool
}

// Expr generates an IN or NOT IN predicate. An empty IN matches nothing,
// an empty NOT IN matches everything.
func (f *InFilter) Expr() ast.Expr {
	return ast.InList{Column: f.Column, Values: f.Values, Negated: f.Negated}
}

// In creates a set membership filter.
func In(column string, values []any) Filter {
	return &InFilter{Column: column, Values: values}
}

// NotIn creates a negated set membership filter.
func NotIn(column string, values []any) Filter {
	return &InFilter{Column: column, Values: values, Negated: true}
}

// --- Range filter ---

// RangeFilter matches values between Min and Max, inclusive.
type RangeFilter struct {
	Column string
	Min    any
	Max    any
}

// Expr generates the bounded range predicate.
func (f *RangeFilter) Expr() ast.Expr {
	return ast.AllOf(ast.Cmp(f.Column, ">=", f.Min), ast.Cmp(f.Column, "<=", f.Max))
}

// Range creates an inclusive range filter.
func Range(column string, min, max any) Filter {
	return &RangeFilter{Column: column, Min: min, Max: max}
}

// --- Null filters ---

// NullFilter tests a column for NULL.
type NullFilter struct {
	Column  string
	Negated bool
}

// Expr generates IS NULL or IS NOT NULL.
func (f *NullFilter) Expr() ast.Expr {
	return ast.IsNull{Column: f.Column, Negated: f.Negated}
}

// IsNull matches rows where column is NULL.
func IsNull(column string) Filter {
	return &NullFilter{Column: column}
}

// NotNull matches rows where column is not NULL.
func NotNull(column string) Filter {
	return &NullFilter{Column: column, Negated: true}
}

// --- Raw filter ---

// RawFilter embeds a SQL fragment with ? placeholders.
type RawFilter struct {
	SQL  string
	Args []any
}

// Expr returns the fragment unchanged.
func (f *RawFilter) Expr() ast.Expr {
	return ast.Raw{SQL: f.SQL, Args: f.Args}
}

// Raw creates a filter from a SQL fragment.
func Raw(sql string, args ...any) Filter {
	return &RawFilter{SQL: sql, Args: args}
}

// --- Boolean combinators ---

// AndFilter combines multiple filters with AND (conjunction).
type AndFilter struct {
	Filters []Filter
}

// Expr generates a conjunction of the child predicates.
func (f *AndFilter) Expr() ast.Expr {
	exprs := make([]ast.Expr, 0, len(f.Filters))
	for _, child := range f.Filters {
		exprs = append(exprs, child.Expr())
	}
	return ast.AllOf(exprs...)
}

// And combines filters with logical AND.
func And(filters ...Filter) Filter {
	// Flatten nested ANDs
	var flat []Filter
	for _, f := range filters {
		if a, ok := f.(*AndFilter); ok {
			flat = append(flat, a.Filters...)
		} else if f != nil {
			flat = append(flat, f)
		}
	}
	return &AndFilter{Filters: flat}
}

// OrFilter combines alternatives with OR (disjunction).
type OrFilter struct {
	Filters []Filter
}

// Expr generates a disjunction of the child predicates.
func (f *OrFilter) Expr() ast.Expr {
	exprs := make([]ast.Expr, 0, len(f.Filters))
	for _, child := range f.Filters {
		exprs = append(exprs, child.Expr())
	}
	return ast.AnyOf(exprs...)
}

// Or combines filters with logical OR.
func Or(filters ...Filter) Filter {
	var flat []Filter
	for _, f := range filters {
		if f != nil {
			flat = append(flat, f)
		}
	}
	return &OrFilter{Filters: flat}
}

// NotFilter negates a filter expression.
type NotFilter struct {
	Inner Filter
}

// Expr wraps the inner predicate in NOT.
func (f *NotFilter) Expr() ast.Expr {
	return ast.Negate(f.Inner.Expr())
}

// Not negates a filter.
func Not(filter Filter) Filter {
	return &NotFilter{Inner: filter}
}

// AttrsFilter creates one equality filter per map entry, in sorted key order
// so the generated SQL is deterministic.
func AttrsFilter(attrs map[string]any) []Filter {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	filters := make([]Filter, 0, len(keys))
	for _, k := range keys {
		filters = append(filters, Eq(k, attrs[k]))
	}
	return filters
}
