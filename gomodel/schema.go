// Package gomodel provides utilities for generating table definitions from Go models.
package gomodel

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/CaliLuke/go-modelservice/ast"
)

// SchemaFor builds the CREATE TABLE IF NOT EXISTS statement for a model.
func SchemaFor(info *ModelInfo) ast.CreateTable {
	unique := make(map[string]bool, len(info.UniqueFields))
	for _, f := range info.UniqueFields {
		unique[f.Tag.Name] = true
	}

	cols := make([]ast.ColumnDef, 0, len(info.Fields))
	for _, f := range info.Fields {
		cols = append(cols, ast.ColumnDef{
			Name:          f.Tag.Name,
			Kind:          f.Kind,
			PrimaryKey:    f.Tag.Key,
			AutoIncrement: f.Tag.Key && f.Tag.Auto == AutoIncrement,
			Unique:        f.Tag.Unique || unique[f.Tag.Name],
			NotNull:       !f.Nullable(),
		})
	}
	return ast.CreateTable{Table: info.Table, Columns: cols, IfNotExists: true}
}

// GenerateSchema renders the table definitions of every registered model,
// ordered by table name, as a single script for the given dialect.
func GenerateSchema(dialect ast.Dialect) (string, error) {
	types := RegisteredTypes()
	sort.Slice(types, func(i, j int) bool { return types[i].Table < types[j].Table })

	c := &ast.Compiler{Dialect: dialect}
	parts := make([]string, 0, len(types))
	for _, info := range types {
		ddl, _, err := c.Compile(SchemaFor(info))
		if err != nil {
			return "", fmt.Errorf("schema %s: %w", info.TypeName, err)
		}
		parts = append(parts, ddl+";")
	}
	return strings.Join(parts, "\n\n"), nil
}

// CreateTable creates the table of T if it does not exist.
// It is meant for tests and bootstrapping, not for schema evolution.
func CreateTable[T any](ctx context.Context, db *Database) error {
	info, err := InfoFor[T]()
	if err != nil {
		return err
	}
	if err := checkCtx(ctx, "create table", info.TypeName); err != nil {
		return err
	}
	if _, err := db.Exec(ctx, SchemaFor(info)); err != nil {
		return fmt.Errorf("create table %s: %w", info.Table, err)
	}
	return nil
}
