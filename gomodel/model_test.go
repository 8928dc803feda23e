package gomodel

import (
	"reflect"
	"testing"
	"time"

	"github.com/CaliLuke/go-modelservice/ast"
)

func TestExtractModelInfo_User(t *testing.T) {
	info, err := ExtractModelInfo(reflect.TypeOf(testUser{}))
	if err != nil {
		t.Fatalf("ExtractModelInfo failed: %v", err)
	}
	if info.Table != "users" {
		t.Errorf("Table = %q, want users", info.Table)
	}
	if info.TypeName != "testUser" {
		t.Errorf("TypeName = %q", info.TypeName)
	}
	if info.Key.Tag.Name != "id" || info.Key.Tag.Auto != AutoUUID {
		t.Errorf("unexpected key: %+v", info.Key.Tag)
	}
	if got := info.UniqueColumns(); !reflect.DeepEqual(got, []string{"email"}) {
		t.Errorf("UniqueColumns = %v", got)
	}
	// Scratch has no db tag.
	if len(info.Fields) != 9 {
		t.Errorf("expected 9 fields, got %d", len(info.Fields))
	}
	if !info.SoftDeletes() {
		t.Error("expected soft deletes")
	}
	if cf, ok := info.CreatedField(); !ok || cf.Tag.Name != "created_at" {
		t.Errorf("CreatedField = %+v, %v", cf, ok)
	}

	tags, _ := info.FieldByColumn("tags")
	if !tags.Encoded || tags.Kind != ast.KindBlob || !tags.Nullable() {
		t.Errorf("tags field should be an encoded nullable blob: %+v", tags)
	}
	age, _ := info.FieldByName("Age")
	if !age.IsPointer || age.Kind != ast.KindInteger {
		t.Errorf("age field: %+v", age)
	}
	active, _ := info.FieldByColumn("active")
	if active.Kind != ast.KindBool || active.Nullable() {
		t.Errorf("active field: %+v", active)
	}
}

func TestExtractModelInfo_DefaultTableName(t *testing.T) {
	info, err := ExtractModelInfo(reflect.TypeOf(testCategory{}))
	if err != nil {
		t.Fatalf("ExtractModelInfo failed: %v", err)
	}
	if info.Table != "test_categories" {
		t.Errorf("Table = %q, want test_categories", info.Table)
	}
	if info.SoftDeletes() {
		t.Error("testCategory should not soft delete")
	}
}

type uniqueOverride struct {
	ID    string `db:"id,key"`
	Email string `db:"email,unique"`
	Phone string `db:"phone"`
}

func (uniqueOverride) UniqueKeys() []string { return []string{"phone", "id", "email", "phone"} }

func TestExtractModelInfo_UniqueKeyer(t *testing.T) {
	info, err := ExtractModelInfo(reflect.TypeOf(uniqueOverride{}))
	if err != nil {
		t.Fatalf("ExtractModelInfo failed: %v", err)
	}
	if got := info.UniqueColumns(); !reflect.DeepEqual(got, []string{"phone", "email"}) {
		t.Errorf("UniqueColumns = %v, want [phone email]", got)
	}
}

func TestModelInfo_WithUniqueColumns(t *testing.T) {
	info, err := ExtractModelInfo(reflect.TypeOf(testUser{}))
	if err != nil {
		t.Fatalf("ExtractModelInfo failed: %v", err)
	}
	cp, err := info.WithUniqueColumns([]string{"name"})
	if err != nil {
		t.Fatalf("WithUniqueColumns failed: %v", err)
	}
	if got := cp.UniqueColumns(); !reflect.DeepEqual(got, []string{"name"}) {
		t.Errorf("copy UniqueColumns = %v", got)
	}
	if got := info.UniqueColumns(); !reflect.DeepEqual(got, []string{"email"}) {
		t.Errorf("original mutated: %v", got)
	}
	if _, err := info.WithUniqueColumns([]string{"nope"}); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestExtractModelInfo_Errors(t *testing.T) {
	type noKey struct {
		Name string `db:"name"`
	}
	type twoKeys struct {
		A string `db:"a,key"`
		B string `db:"b,key"`
	}
	type badDeleted struct {
		ID string    `db:"id,key"`
		At time.Time `db:"at,deleted"`
	}
	type badIncrement struct {
		ID string `db:"id,key,auto=increment"`
	}
	type dupColumn struct {
		ID   string `db:"id,key"`
		Name string `db:"name"`
		Alt  string `db:"name"`
	}
	type pointerKey struct {
		ID *string `db:"id,key"`
	}

	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"no key", reflect.TypeOf(noKey{})},
		{"two keys", reflect.TypeOf(twoKeys{})},
		{"deleted not pointer time", reflect.TypeOf(badDeleted{})},
		{"increment on string", reflect.TypeOf(badIncrement{})},
		{"duplicate column", reflect.TypeOf(dupColumn{})},
		{"pointer key", reflect.TypeOf(pointerKey{})},
		{"not a struct", reflect.TypeOf(42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExtractModelInfo(tt.typ); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Name", "name"},
		{"EmailVerifiedAt", "email_verified_at"},
		{"UserID", "user_id"},
		{"HTTPServer", "http_server"},
		{"ID", "id"},
		{"Address2Line", "address2_line"},
	}
	for _, tt := range tests {
		if got := toSnakeCase(tt.in); got != tt.want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"user", "users"},
		{"category", "categories"},
		{"key", "keys"},
		{"box", "boxes"},
		{"address", "addresses"},
		{"match", "matches"},
	}
	for _, tt := range tests {
		if got := pluralize(tt.in); got != tt.want {
			t.Errorf("pluralize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
