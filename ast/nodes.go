// Package ast defines the Abstract Syntax Tree (AST) for SQL statements.
//
// It decouples statement construction from string formatting, so the same
// tree compiles to the placeholder and quoting rules of each supported
// dialect.
package ast

// Node is the marker interface for all AST nodes.
type Node interface {
	node()
}

// --- Expressions ---

// Expr is the marker interface for boolean expressions used in WHERE clauses.
type Expr interface {
	Node
	expr()
}

// Comparison compares a column against a bound value ("email" = ?).
// A nil Value with = or != compiles to IS NULL / IS NOT NULL.
type Comparison struct {
	// Column is the unquoted column name.
	Column string
	// Operator is one of =, !=, <>, <, <=, >, >=.
	Operator string
	// Value is bound as a positional argument.
	Value any
}

func (Comparison) node() {}
func (Comparison) expr() {}

// InList tests column membership in a set of bound values.
//
// An empty list matches nothing; an empty negated list matches everything.
type InList struct {
	// Column is the unquoted column name.
	Column string
	// Values are bound as positional arguments.
	Values []any
	// Negated selects NOT IN.
	Negated bool
}

func (InList) node() {}
func (InList) expr() {}

// IsNull tests a column for NULL.
type IsNull struct {
	// Column is the unquoted column name.
	Column string
	// Negated selects IS NOT NULL.
	Negated bool
}

func (IsNull) node() {}
func (IsNull) expr() {}

// Like matches a column against a LIKE pattern.
type Like struct {
	// Column is the unquoted column name.
	Column string
	// Pattern is bound as a positional argument, wildcards included.
	Pattern string
	// Negated selects NOT LIKE.
	Negated bool
}

func (Like) node() {}
func (Like) expr() {}

// And is a conjunction. With no children it is always true.
type And struct {
	Exprs []Expr
}

func (And) node() {}
func (And) expr() {}

// Or is a disjunction. With no children it is always false.
type Or struct {
	Exprs []Expr
}

func (Or) node() {}
func (Or) expr() {}

// Not negates its child.
type Not struct {
	Expr Expr
}

func (Not) node() {}
func (Not) expr() {}

// Bool is a constant truth value.
type Bool struct {
	Value bool
}

func (Bool) node() {}
func (Bool) expr() {}

// Raw embeds a literal SQL fragment. Each ? in SQL is rewritten to the
// dialect's placeholder and bound to the matching entry of Args.
// Question marks inside string literals are not supported.
type Raw struct {
	SQL  string
	Args []any
}

func (Raw) node() {}
func (Raw) expr() {}

// --- Statements ---

// Statement is the marker interface for executable SQL statements.
type Statement interface {
	Node
	statement()
}

// OrderTerm is one ORDER BY entry.
type OrderTerm struct {
	// Column is the unquoted column name.
	Column string
	// Desc selects descending order.
	Desc bool
}

// Select reads rows (or a row count) from a table.
type Select struct {
	// Table is the unquoted table name.
	Table string
	// Columns lists the projected columns. Empty means *.
	Columns []string
	// Count replaces the projection with COUNT(*).
	Count bool
	// Where filters rows. Nil means no WHERE clause.
	Where Expr
	// OrderBy lists sort terms, applied in order.
	OrderBy []OrderTerm
	// Random orders rows randomly, after OrderBy terms.
	Random bool
	// Limit caps the number of rows. Zero means unlimited.
	Limit int
	// Offset skips rows. Zero means none.
	Offset int
}

func (Select) node()      {}
func (Select) statement() {}

// Insert writes one or more rows.
type Insert struct {
	// Table is the unquoted table name.
	Table string
	// Columns lists the inserted columns, shared by every row.
	Columns []string
	// Rows holds one value slice per row, aligned with Columns.
	Rows [][]any
	// Returning lists columns read back from the inserted rows.
	Returning []string
}

func (Insert) node()      {}
func (Insert) statement() {}

// Assignment is a single SET entry.
type Assignment struct {
	Column string
	Value  any
}

// Update modifies rows matching Where.
type Update struct {
	Table string
	Set   []Assignment
	Where Expr
}

func (Update) node()      {}
func (Update) statement() {}

// Delete removes rows matching Where. A nil Where removes every row.
type Delete struct {
	Table string
	Where Expr
}

func (Delete) node()      {}
func (Delete) statement() {}

// Truncate removes every row of a table.
type Truncate struct {
	Table string
}

func (Truncate) node()      {}
func (Truncate) statement() {}

// SavepointAction selects the savepoint command.
type SavepointAction int

const (
	SavepointCreate SavepointAction = iota
	SavepointRelease
	SavepointRollback
)

// Savepoint marks, releases or rolls back to a named point inside a
// transaction.
type Savepoint struct {
	Name   string
	Action SavepointAction
}

func (Savepoint) node()      {}
func (Savepoint) statement() {}

// ColumnKind is the storage class of a column, mapped to a concrete type by
// each dialect.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
	KindReal
	KindBool
	KindTime
	KindBlob
)

// ColumnDef describes one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name          string
	Kind          ColumnKind
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	NotNull       bool
}

// CreateTable creates a table.
type CreateTable struct {
	Table       string
	Columns     []ColumnDef
	IfNotExists bool
}

func (CreateTable) node()      {}
func (CreateTable) statement() {}

// Kind returns a short lowercase label for a statement ("select", "insert",
// "update", "delete", "truncate", "create").
func Kind(stmt Statement) string {
	switch stmt.(type) {
	case Select:
		return "select"
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case Truncate:
		return "truncate"
	case CreateTable:
		return "create"
	case Savepoint:
		return "savepoint"
	default:
		return "unknown"
	}
}
