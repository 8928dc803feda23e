package ast

// --- Builder Helpers ---
// These functions provide a concise way to construct AST nodes.

// Eq creates an equality comparison.
func Eq(column string, value any) Comparison {
	return Comparison{Column: column, Operator: "=", Value: value}
}

// Cmp creates a comparison with an arbitrary operator.
func Cmp(column, operator string, value any) Comparison {
	return Comparison{Column: column, Operator: operator, Value: value}
}

// In creates an IN list. An empty list matches nothing.
func In(column string, values ...any) InList {
	return InList{Column: column, Values: values}
}

// NotIn creates a NOT IN list. An empty list matches everything.
func NotIn(column string, values ...any) InList {
	return InList{Column: column, Values: values, Negated: true}
}

// Null creates an IS NULL test.
func Null(column string) IsNull {
	return IsNull{Column: column}
}

// NotNull creates an IS NOT NULL test.
func NotNull(column string) IsNull {
	return IsNull{Column: column, Negated: true}
}

// AllOf creates a conjunction, flattening nested conjunctions.
func AllOf(exprs ...Expr) And {
	out := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if a, ok := e.(And); ok {
			out = append(out, a.Exprs...)
			continue
		}
		out = append(out, e)
	}
	return And{Exprs: out}
}

// AnyOf creates a disjunction, flattening nested disjunctions.
func AnyOf(exprs ...Expr) Or {
	out := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if o, ok := e.(Or); ok {
			out = append(out, o.Exprs...)
			continue
		}
		out = append(out, e)
	}
	return Or{Exprs: out}
}

// Negate wraps an expression in NOT.
func Negate(e Expr) Not {
	return Not{Expr: e}
}

// Asc creates an ascending order term.
func Asc(column string) OrderTerm {
	return OrderTerm{Column: column}
}

// Desc creates a descending order term.
func Desc(column string) OrderTerm {
	return OrderTerm{Column: column, Desc: true}
}

// From creates a SELECT * over table.
func From(table string, where Expr) Select {
	return Select{Table: table, Where: where}
}

// CountFrom creates a SELECT COUNT(*) over table.
func CountFrom(table string, where Expr) Select {
	return Select{Table: table, Count: true, Where: where}
}

// InsertRow creates a single-row insert from aligned columns and values.
func InsertRow(table string, columns []string, values []any, returning ...string) Insert {
	return Insert{Table: table, Columns: columns, Rows: [][]any{values}, Returning: returning}
}
