// Package sqlgen parses CREATE TABLE statements and generates gomodel
// structs from them.
package sqlgen

// ParsedSchema holds the tables extracted from a DDL file, in source order.
type ParsedSchema struct {
	// Tables is a list of all table definitions in the schema.
	Tables []TableSpec
}

// TableSpec describes a CREATE TABLE statement.
type TableSpec struct {
	// Name is the table name, unquoted.
	Name string
	// Columns lists the columns in declaration order.
	Columns []ColumnSpec
	// UniqueGroups lists multi-column UNIQUE constraints. Single-column
	// constraints are folded into ColumnSpec.Unique.
	UniqueGroups [][]string
}

// ColumnSpec describes one column definition.
type ColumnSpec struct {
	// Name is the column name, unquoted.
	Name string
	// Type is the declared SQL type in upper case, e.g. "BIGINT" or
	// "DOUBLE PRECISION". It is empty for typeless sqlite columns.
	Type string
	// PrimaryKey marks the primary key column.
	PrimaryKey bool
	// AutoIncrement is set by AUTOINCREMENT, a SERIAL type, or a sqlite
	// INTEGER PRIMARY KEY (a rowid alias).
	AutoIncrement bool
	// NotNull is set by NOT NULL.
	NotNull bool
	// Unique is set by a column or single-column table UNIQUE constraint.
	Unique bool
	// Default is the DEFAULT literal as written, if any.
	Default string
	// References is the referenced table of a REFERENCES clause.
	References string
	// Values lists the allowed values of a CHECK (col IN (...)) constraint.
	Values []string
}

// Nullable reports whether the column may hold NULL.
func (c ColumnSpec) Nullable() bool {
	return !c.NotNull && !c.PrimaryKey
}

// Table returns the table named name.
func (s *ParsedSchema) Table(name string) (TableSpec, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableSpec{}, false
}

// Column returns the column named name.
func (t TableSpec) Column(name string) (ColumnSpec, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}
