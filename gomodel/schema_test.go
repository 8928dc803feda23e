package gomodel

import (
	"strings"
	"testing"

	"github.com/CaliLuke/go-modelservice/ast"
)

func TestSchemaFor(t *testing.T) {
	registerTestTypes(t)
	info, _ := Lookup("users")
	ct := SchemaFor(info)

	if ct.Table != "users" || !ct.IfNotExists {
		t.Fatalf("unexpected table def: %+v", ct)
	}
	byName := map[string]ast.ColumnDef{}
	for _, c := range ct.Columns {
		byName[c.Name] = c
	}
	if !byName["id"].PrimaryKey || byName["id"].AutoIncrement {
		t.Errorf("id column = %+v", byName["id"])
	}
	if !byName["email"].Unique || !byName["email"].NotNull {
		t.Errorf("email column = %+v", byName["email"])
	}
	if byName["age"].NotNull || byName["deleted_at"].NotNull || byName["tags"].NotNull {
		t.Error("pointer and slice columns should be nullable")
	}
	if byName["created_at"].Kind != ast.KindTime || byName["tags"].Kind != ast.KindBlob {
		t.Errorf("unexpected kinds: created_at=%v tags=%v", byName["created_at"].Kind, byName["tags"].Kind)
	}
}

func TestGenerateSchema_SQLite(t *testing.T) {
	registerTestTypes(t)
	got, err := GenerateSchema(ast.SQLite)
	if err != nil {
		t.Fatalf("GenerateSchema failed: %v", err)
	}

	want := "CREATE TABLE IF NOT EXISTS \"test_categories\" (\n" +
		"  \"code\" TEXT PRIMARY KEY,\n" +
		"  \"name\" TEXT NOT NULL\n" +
		");"
	if !strings.HasPrefix(got, want) {
		t.Errorf("schema should start with categories table:\n%s", got)
	}
	if !strings.Contains(got, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`) {
		t.Errorf("missing autoincrement key:\n%s", got)
	}
	// Tables are ordered by name.
	if strings.Index(got, `"test_posts"`) > strings.Index(got, `"users"`) {
		t.Errorf("tables out of order:\n%s", got)
	}
}

func TestGenerateSchema_Postgres(t *testing.T) {
	registerTestTypes(t)
	got, err := GenerateSchema(ast.Postgres)
	if err != nil {
		t.Fatalf("GenerateSchema failed: %v", err)
	}
	for _, frag := range []string{
		`"id" BIGSERIAL PRIMARY KEY`,
		`"score" DOUBLE PRECISION NOT NULL`,
		`"active" BOOLEAN NOT NULL`,
		`"created_at" TIMESTAMPTZ NOT NULL`,
		`"meta" BYTEA`,
	} {
		if !strings.Contains(got, frag) {
			t.Errorf("missing %q in:\n%s", frag, got)
		}
	}
}
