package ast

import (
	"errors"
	"fmt"
	"strings"
)

// Compiler compiles AST nodes into SQL strings with positional arguments.
// It traverses the AST and generates the syntax of its Dialect.
type Compiler struct {
	// Dialect selects placeholder, quoting and DDL rules. Nil means SQLite.
	Dialect Dialect
}

// compileState accumulates SQL text and bound arguments for one statement,
// so placeholder numbering stays sequential across nested expressions.
type compileState struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func (s *compileState) bind(v any) {
	s.args = append(s.args, s.d.Bind(v))
	s.sb.WriteString(s.d.Placeholder(len(s.args)))
}

func (s *compileState) ident(name string) {
	s.sb.WriteString(s.d.QuoteIdent(name))
}

func (c *Compiler) dialect() Dialect {
	if c.Dialect == nil {
		return SQLite
	}
	return c.Dialect
}

// Compile compiles a statement into SQL and its positional arguments.
// It returns an error if the node type is unknown or the statement is malformed.
func (c *Compiler) Compile(stmt Statement) (string, []any, error) {
	s := &compileState{d: c.dialect()}
	var err error
	switch n := stmt.(type) {
	case Select:
		err = c.compileSelect(s, n)
	case Insert:
		err = c.compileInsert(s, n)
	case Update:
		err = c.compileUpdate(s, n)
	case Delete:
		err = c.compileDelete(s, n)
	case Truncate:
		if n.Table == "" {
			return "", nil, errors.New("truncate: missing table")
		}
		s.sb.WriteString(s.d.TruncateSQL(s.d.QuoteIdent(n.Table)))
	case CreateTable:
		err = c.compileCreateTable(s, n)
	case Savepoint:
		if n.Name == "" {
			return "", nil, errors.New("savepoint: missing name")
		}
		switch n.Action {
		case SavepointRelease:
			s.sb.WriteString("RELEASE SAVEPOINT ")
		case SavepointRollback:
			s.sb.WriteString("ROLLBACK TO SAVEPOINT ")
		default:
			s.sb.WriteString("SAVEPOINT ")
		}
		s.sb.WriteString(s.d.QuoteIdent(n.Name))
	default:
		return "", nil, fmt.Errorf("unknown statement type: %T", stmt)
	}
	if err != nil {
		return "", nil, err
	}
	return s.sb.String(), s.args, nil
}

// CompileExpr compiles a standalone expression, numbering placeholders from 1.
func (c *Compiler) CompileExpr(e Expr) (string, []any, error) {
	s := &compileState{d: c.dialect()}
	if err := c.compileExpr(s, e); err != nil {
		return "", nil, err
	}
	return s.sb.String(), s.args, nil
}

// --- Statements ---

func (c *Compiler) compileSelect(s *compileState, n Select) error {
	if n.Table == "" {
		return errors.New("select: missing table")
	}
	s.sb.WriteString("SELECT ")
	switch {
	case n.Count:
		s.sb.WriteString("COUNT(*)")
	case len(n.Columns) == 0:
		s.sb.WriteString("*")
	default:
		for i, col := range n.Columns {
			if i > 0 {
				s.sb.WriteString(", ")
			}
			s.ident(col)
		}
	}
	s.sb.WriteString(" FROM ")
	s.ident(n.Table)
	if err := c.compileWhere(s, n.Where); err != nil {
		return err
	}
	if !n.Count {
		terms := make([]string, 0, len(n.OrderBy)+1)
		for _, o := range n.OrderBy {
			term := s.d.QuoteIdent(o.Column)
			if o.Desc {
				term += " DESC"
			} else {
				term += " ASC"
			}
			terms = append(terms, term)
		}
		if n.Random {
			terms = append(terms, s.d.RandomFunc())
		}
		if len(terms) > 0 {
			s.sb.WriteString(" ORDER BY ")
			s.sb.WriteString(strings.Join(terms, ", "))
		}
		if lim := s.d.LimitSQL(n.Limit, n.Offset); lim != "" {
			s.sb.WriteString(" ")
			s.sb.WriteString(lim)
		}
	}
	return nil
}

func (c *Compiler) compileInsert(s *compileState, n Insert) error {
	if n.Table == "" {
		return errors.New("insert: missing table")
	}
	s.sb.WriteString("INSERT INTO ")
	s.ident(n.Table)
	if len(n.Columns) == 0 {
		if len(n.Rows) > 1 {
			return errors.New("insert: multiple rows require columns")
		}
		s.sb.WriteString(" DEFAULT VALUES")
	} else {
		if len(n.Rows) == 0 {
			return errors.New("insert: no rows")
		}
		s.sb.WriteString(" (")
		for i, col := range n.Columns {
			if i > 0 {
				s.sb.WriteString(", ")
			}
			s.ident(col)
		}
		s.sb.WriteString(") VALUES ")
		for r, row := range n.Rows {
			if len(row) != len(n.Columns) {
				return fmt.Errorf("insert: row %d has %d values for %d columns", r, len(row), len(n.Columns))
			}
			if r > 0 {
				s.sb.WriteString(", ")
			}
			s.sb.WriteString("(")
			for i, v := range row {
				if i > 0 {
					s.sb.WriteString(", ")
				}
				s.bind(v)
			}
			s.sb.WriteString(")")
		}
	}
	if len(n.Returning) > 0 {
		s.sb.WriteString(" RETURNING ")
		for i, col := range n.Returning {
			if i > 0 {
				s.sb.WriteString(", ")
			}
			s.ident(col)
		}
	}
	return nil
}

func (c *Compiler) compileUpdate(s *compileState, n Update) error {
	if n.Table == "" {
		return errors.New("update: missing table")
	}
	if len(n.Set) == 0 {
		return errors.New("update: no assignments")
	}
	s.sb.WriteString("UPDATE ")
	s.ident(n.Table)
	s.sb.WriteString(" SET ")
	for i, a := range n.Set {
		if i > 0 {
			s.sb.WriteString(", ")
		}
		s.ident(a.Column)
		s.sb.WriteString(" = ")
		s.bind(a.Value)
	}
	return c.compileWhere(s, n.Where)
}

func (c *Compiler) compileDelete(s *compileState, n Delete) error {
	if n.Table == "" {
		return errors.New("delete: missing table")
	}
	s.sb.WriteString("DELETE FROM ")
	s.ident(n.Table)
	return c.compileWhere(s, n.Where)
}

func (c *Compiler) compileCreateTable(s *compileState, n CreateTable) error {
	if n.Table == "" {
		return errors.New("create table: missing table")
	}
	if len(n.Columns) == 0 {
		return fmt.Errorf("create table %s: no columns", n.Table)
	}
	s.sb.WriteString("CREATE TABLE ")
	if n.IfNotExists {
		s.sb.WriteString("IF NOT EXISTS ")
	}
	s.ident(n.Table)
	s.sb.WriteString(" (\n")
	for i, col := range n.Columns {
		if i > 0 {
			s.sb.WriteString(",\n")
		}
		s.sb.WriteString("  ")
		s.ident(col.Name)
		s.sb.WriteString(" ")
		s.sb.WriteString(s.d.ColumnType(col.Kind, col.PrimaryKey && col.AutoIncrement))
		if col.PrimaryKey {
			s.sb.WriteString(" PRIMARY KEY")
			if col.AutoIncrement {
				if extra := s.d.AutoIncrementSQL(); extra != "" {
					s.sb.WriteString(" " + extra)
				}
			}
		} else {
			if col.NotNull {
				s.sb.WriteString(" NOT NULL")
			}
			if col.Unique {
				s.sb.WriteString(" UNIQUE")
			}
		}
	}
	s.sb.WriteString("\n)")
	return nil
}

func (c *Compiler) compileWhere(s *compileState, where Expr) error {
	if where == nil {
		return nil
	}
	s.sb.WriteString(" WHERE ")
	return c.compileExpr(s, where)
}

// --- Expressions ---

var comparisonOperators = map[string]bool{
	"=": true, "!=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true,
}

func (c *Compiler) compileExpr(s *compileState, e Expr) error {
	switch n := e.(type) {
	case Comparison:
		if !comparisonOperators[n.Operator] {
			return fmt.Errorf("unsupported comparison operator %q", n.Operator)
		}
		s.ident(n.Column)
		if n.Value == nil && (n.Operator == "=" || n.Operator == "!=" || n.Operator == "<>") {
			if n.Operator == "=" {
				s.sb.WriteString(" IS NULL")
			} else {
				s.sb.WriteString(" IS NOT NULL")
			}
			return nil
		}
		s.sb.WriteString(" " + n.Operator + " ")
		s.bind(n.Value)

	case InList:
		if len(n.Values) == 0 {
			if n.Negated {
				s.sb.WriteString("1 = 1")
			} else {
				s.sb.WriteString("1 = 0")
			}
			return nil
		}
		s.ident(n.Column)
		if n.Negated {
			s.sb.WriteString(" NOT IN (")
		} else {
			s.sb.WriteString(" IN (")
		}
		for i, v := range n.Values {
			if i > 0 {
				s.sb.WriteString(", ")
			}
			s.bind(v)
		}
		s.sb.WriteString(")")

	case IsNull:
		s.ident(n.Column)
		if n.Negated {
			s.sb.WriteString(" IS NOT NULL")
		} else {
			s.sb.WriteString(" IS NULL")
		}

	case Like:
		s.ident(n.Column)
		if n.Negated {
			s.sb.WriteString(" NOT LIKE ")
		} else {
			s.sb.WriteString(" LIKE ")
		}
		s.bind(n.Pattern)

	case And:
		return c.compileJunction(s, n.Exprs, " AND ", "1 = 1")

	case Or:
		return c.compileJunction(s, n.Exprs, " OR ", "1 = 0")

	case Not:
		if n.Expr == nil {
			return errors.New("not: missing expression")
		}
		s.sb.WriteString("NOT (")
		if err := c.compileExpr(s, n.Expr); err != nil {
			return err
		}
		s.sb.WriteString(")")

	case Bool:
		if n.Value {
			s.sb.WriteString("1 = 1")
		} else {
			s.sb.WriteString("1 = 0")
		}

	case Raw:
		return c.compileRaw(s, n)

	case nil:
		return errors.New("nil expression")

	default:
		return fmt.Errorf("unknown expression type: %T", e)
	}
	return nil
}

func (c *Compiler) compileJunction(s *compileState, exprs []Expr, sep, empty string) error {
	switch len(exprs) {
	case 0:
		s.sb.WriteString(empty)
		return nil
	case 1:
		return c.compileExpr(s, exprs[0])
	}
	s.sb.WriteString("(")
	for i, e := range exprs {
		if i > 0 {
			s.sb.WriteString(sep)
		}
		if err := c.compileExpr(s, e); err != nil {
			return err
		}
	}
	s.sb.WriteString(")")
	return nil
}

func (c *Compiler) compileRaw(s *compileState, n Raw) error {
	if want := strings.Count(n.SQL, "?"); want != len(n.Args) {
		return fmt.Errorf("raw: %d placeholders for %d args", want, len(n.Args))
	}
	next := 0
	s.sb.WriteString("(")
	for _, r := range n.SQL {
		if r == '?' {
			s.bind(n.Args[next])
			next++
			continue
		}
		s.sb.WriteRune(r)
	}
	s.sb.WriteString(")")
	return nil
}
