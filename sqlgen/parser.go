package sqlgen

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// --- Participle grammar structs ---
// These define the subset of SQL DDL understood by the generator: CREATE
// TABLE statements with column and table constraints.

// DDLFile is the top-level grammar: a sequence of CREATE TABLE statements.
type DDLFile struct {
	Tables []*CreateTableDef `parser:"( @@ ';'? )*"`
}

// CreateTableDef parses: CREATE TABLE [IF NOT EXISTS] name ( element, ... )
type CreateTableDef struct {
	Name     string        `parser:"'create' 'table' ( 'if' 'not' 'exists' )? @Ident"`
	Elements []*ElementDef `parser:"'(' @@ ( ',' @@ )* ')'"`
}

// ElementDef is one of: a table constraint or a column definition.
type ElementDef struct {
	Constraint *TableConstraintDef `parser:"  @@"`
	Column     *ColumnDef          `parser:"| @@"`
}

// TableConstraintDef parses: [CONSTRAINT name] PRIMARY KEY (cols) | UNIQUE (cols)
type TableConstraintDef struct {
	Name string             `parser:"( 'constraint' @Ident )?"`
	Kind *TableConstraintKW `parser:"@@"`
}

// TableConstraintKW is the body of a table constraint.
type TableConstraintKW struct {
	PrimaryKey []string `parser:"  'primary' 'key' '(' @Ident ( ',' @Ident )* ')'"`
	Unique     []string `parser:"| 'unique' '(' @Ident ( ',' @Ident )* ')'"`
}

// ColumnDef parses: name [type] [constraint...]
type ColumnDef struct {
	Name        string                 `parser:"@Ident"`
	Type        *TypeDef               `parser:"@@?"`
	Constraints []*ColumnConstraintDef `parser:"@@*"`
}

// TypeDef parses: word [word...] [( n [, n] )]
type TypeDef struct {
	Words []string `parser:"@Ident+"`
	Args  []string `parser:"( '(' @Number ( ',' @Number )* ')' )?"`
}

// ColumnConstraintDef parses one column constraint. A leading
// CONSTRAINT name is accepted and discarded.
type ColumnConstraintDef struct {
	Name          string        `parser:"( 'constraint' @Ident )?"`
	PrimaryKey    bool          `parser:"(  @( 'primary' 'key' )"`
	AutoIncrement bool          `parser:" | @'autoincrement'"`
	NotNull       bool          `parser:" | @( 'not' 'null' )"`
	Null          bool          `parser:" | @'null'"`
	Unique        bool          `parser:" | @'unique'"`
	Default       *string       `parser:" | 'default' @( '-'? Number | String | Ident | 'null' )"`
	References    *ReferenceDef `parser:" | 'references' @@"`
	Check         *CheckInDef   `parser:" | 'check' @@ )"`
}

// ReferenceDef parses: table [( column )] [ON DELETE|UPDATE action...]
type ReferenceDef struct {
	Table   string   `parser:"@Ident"`
	Column  string   `parser:"( '(' @Ident ')' )?"`
	Actions []string `parser:"( 'on' @( 'delete' | 'update' ) ( Ident | 'null' | 'default' )+ )*"`
}

// CheckInDef parses: ( column IN ( 'a', 'b', ... ) )
type CheckInDef struct {
	Column string   `parser:"'(' @Ident 'in'"`
	Values []string `parser:"'(' @String ( ',' @String )* ')' ')'"`
}

var ddlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `--[^\n]*|/\*(?:[^*]|\*[^/])*\*/`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Keyword", Pattern: `(?i)\b(create|table|if|not|exists|constraint|primary|key|autoincrement|null|unique|default|references|on|delete|update|check|in)\b`},
	{Name: "Ident", Pattern: "[A-Za-z_][A-Za-z0-9_]*|\"(?:[^\"]|\"\")+\"|`[^`]+`"},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]+)?`},
	{Name: "Punct", Pattern: `[(),;\-]`},
})

var ddlParser = participle.MustBuild[DDLFile](
	participle.Lexer(ddlLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(2),
)

// --- Entry points ---

// ParseSchema parses DDL text into a ParsedSchema.
func ParseSchema(input string) (*ParsedSchema, error) {
	file, err := ddlParser.ParseString("schema.sql", input)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return convertAST(file)
}

// ParseSchemaFile reads DDL from the specified file path and parses it.
func ParseSchemaFile(path string) (*ParsedSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(string(data))
}

// --- AST conversion ---

func convertAST(file *DDLFile) (*ParsedSchema, error) {
	schema := &ParsedSchema{}
	for _, def := range file.Tables {
		t, err := convertTable(def)
		if err != nil {
			return nil, err
		}
		if _, dup := schema.Table(t.Name); dup {
			return nil, fmt.Errorf("table %q defined twice", t.Name)
		}
		schema.Tables = append(schema.Tables, t)
	}
	return schema, nil
}

func convertTable(def *CreateTableDef) (TableSpec, error) {
	t := TableSpec{Name: unquoteIdent(def.Name)}
	var constraints []*TableConstraintKW

	for _, el := range def.Elements {
		if el.Constraint != nil {
			constraints = append(constraints, el.Constraint.Kind)
			continue
		}
		col := convertColumn(el.Column)
		if _, dup := t.Column(col.Name); dup {
			return TableSpec{}, fmt.Errorf("table %q: column %q defined twice", t.Name, col.Name)
		}
		t.Columns = append(t.Columns, col)
	}

	for _, c := range constraints {
		switch {
		case len(c.PrimaryKey) > 1:
			return TableSpec{}, fmt.Errorf("table %q: composite primary keys are not supported", t.Name)
		case len(c.PrimaryKey) == 1:
			if err := t.mark(unquoteIdent(c.PrimaryKey[0]), func(col *ColumnSpec) { col.PrimaryKey = true }); err != nil {
				return TableSpec{}, err
			}
		case len(c.Unique) == 1:
			if err := t.mark(unquoteIdent(c.Unique[0]), func(col *ColumnSpec) { col.Unique = true }); err != nil {
				return TableSpec{}, err
			}
		default:
			group := make([]string, len(c.Unique))
			for i, name := range c.Unique {
				group[i] = unquoteIdent(name)
			}
			t.UniqueGroups = append(t.UniqueGroups, group)
		}
	}

	keys := 0
	for i := range t.Columns {
		col := &t.Columns[i]
		if !col.PrimaryKey {
			continue
		}
		keys++
		// A sqlite INTEGER PRIMARY KEY aliases the rowid.
		if col.Type == "INTEGER" || strings.HasSuffix(col.Type, "SERIAL") {
			col.AutoIncrement = true
		}
		col.Unique = false
	}
	if keys > 1 {
		return TableSpec{}, fmt.Errorf("table %q: more than one primary key", t.Name)
	}
	return t, nil
}

func (t *TableSpec) mark(name string, fn func(*ColumnSpec)) error {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			fn(&t.Columns[i])
			return nil
		}
	}
	return fmt.Errorf("table %q: constraint on unknown column %q", t.Name, name)
}

func convertColumn(def *ColumnDef) ColumnSpec {
	col := ColumnSpec{Name: unquoteIdent(def.Name)}
	if def.Type != nil {
		col.Type = strings.ToUpper(strings.Join(def.Type.Words, " "))
	}
	for _, c := range def.Constraints {
		switch {
		case c.PrimaryKey:
			col.PrimaryKey = true
		case c.AutoIncrement:
			col.AutoIncrement = true
		case c.NotNull:
			col.NotNull = true
		case c.Unique:
			col.Unique = true
		case c.Default != nil:
			col.Default = *c.Default
		case c.References != nil:
			col.References = unquoteIdent(c.References.Table)
		case c.Check != nil:
			for _, v := range c.Check.Values {
				col.Values = append(col.Values, unquoteString(v))
			}
		}
	}
	return col
}

// unquoteIdent strips double-quote or backtick quoting from an identifier.
func unquoteIdent(s string) string {
	if len(s) >= 2 {
		switch {
		case s[0] == '"' && s[len(s)-1] == '"':
			return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
		case s[0] == '`' && s[len(s)-1] == '`':
			return s[1 : len(s)-1]
		}
	}
	return s
}

func unquoteString(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}
