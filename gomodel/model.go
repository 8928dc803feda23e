// Package gomodel provides reflection-based mapping between Go types and SQL tables.
package gomodel

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/CaliLuke/go-modelservice/ast"
)

// Tabler overrides the default table name of a model.
type Tabler interface {
	TableName() string
}

// UniqueKeyer overrides the tag-derived unique-key set of a model.
// The returned names are columns; order is significant.
type UniqueKeyer interface {
	UniqueKeys() []string
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	bytesType   = reflect.TypeOf([]byte(nil))
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// FieldInfo contains metadata about a single field in a model struct,
// mapping it to a table column.
type FieldInfo struct {
	// Tag is the parsed 'db' struct tag.
	Tag FieldTag
	// FieldName is the name of the field in the Go struct.
	FieldName string
	// FieldIndex is the 0-based index of the field in the Go struct.
	FieldIndex int
	// FieldType is the reflection type of the field.
	FieldType reflect.Type
	// IsPointer is true if the field is a pointer, used for nullable columns.
	IsPointer bool
	// ElemType is the field type with one level of pointer removed.
	ElemType reflect.Type
	// Kind is the storage class of the column.
	Kind ast.ColumnKind
	// Encoded is true for composite values stored as msgpack blobs.
	Encoded bool
	// Scannable is true when the type implements driver.Valuer and sql.Scanner.
	Scannable bool
}

// Column returns the column name.
func (f FieldInfo) Column() string {
	return f.Tag.Name
}

// Nullable reports whether the column may hold NULL.
func (f FieldInfo) Nullable() bool {
	if f.IsPointer {
		return true
	}
	switch f.FieldType.Kind() {
	case reflect.Map, reflect.Slice:
		return true
	}
	return false
}

// ModelInfo contains metadata about a registered model, including its
// mapping to a Go struct and its table layout.
type ModelInfo struct {
	// GoType is the reflection type of the Go struct representing the model.
	GoType reflect.Type
	// TypeName is the Go struct name, used in errors and logs.
	TypeName string
	// Table is the table name.
	Table string
	// Fields lists every persisted field in declaration order.
	Fields []FieldInfo
	// Key is the primary key field.
	Key FieldInfo
	// UniqueFields lists the unique-key set in order, excluding the key.
	UniqueFields []FieldInfo

	created int
	updated int
	deleted int
}

// FieldByName retrieves FieldInfo by the Go struct field name.
func (m *ModelInfo) FieldByName(name string) (FieldInfo, bool) {
	for _, f := range m.Fields {
		if f.FieldName == name {
			return f, true
		}
	}
	return FieldInfo{}, false
}

// FieldByColumn retrieves FieldInfo by column name.
func (m *ModelInfo) FieldByColumn(column string) (FieldInfo, bool) {
	for _, f := range m.Fields {
		if f.Tag.Name == column {
			return f, true
		}
	}
	return FieldInfo{}, false
}

// Columns returns every persisted column in declaration order.
func (m *ModelInfo) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Tag.Name
	}
	return cols
}

// UniqueColumns returns the unique-key set as column names.
func (m *ModelInfo) UniqueColumns() []string {
	cols := make([]string, len(m.UniqueFields))
	for i, f := range m.UniqueFields {
		cols[i] = f.Tag.Name
	}
	return cols
}

// CreatedField returns the creation timestamp field, if any.
func (m *ModelInfo) CreatedField() (FieldInfo, bool) { return m.fieldAt(m.created) }

// UpdatedField returns the update timestamp field, if any.
func (m *ModelInfo) UpdatedField() (FieldInfo, bool) { return m.fieldAt(m.updated) }

// DeletedField returns the soft-delete timestamp field, if any.
func (m *ModelInfo) DeletedField() (FieldInfo, bool) { return m.fieldAt(m.deleted) }

// SoftDeletes reports whether the model has a soft-delete column.
func (m *ModelInfo) SoftDeletes() bool { return m.deleted >= 0 }

func (m *ModelInfo) fieldAt(i int) (FieldInfo, bool) {
	if i < 0 {
		return FieldInfo{}, false
	}
	return m.Fields[i], true
}

// ExtractModelInfo analyzes a Go struct type and extracts its table metadata.
// Only tagged fields are persisted; exactly one field must be tagged key.
func ExtractModelInfo(t reflect.Type) (*ModelInfo, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", t.Kind())
	}

	info := &ModelInfo{
		GoType:   t,
		TypeName: t.Name(),
		Table:    toTableName(t.Name()),
		created:  -1,
		updated:  -1,
		deleted:  -1,
	}
	if tb, ok := reflect.New(t).Interface().(Tabler); ok && tb.TableName() != "" {
		info.Table = tb.TableName()
	}

	keys := 0
	seen := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tagStr, ok := field.Tag.Lookup("db")
		if !ok || tagStr == "-" {
			continue
		}

		tag, err := ParseTag(tagStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if tag.Skip {
			continue
		}
		if tag.Name == "" {
			tag.Name = toSnakeCase(field.Name)
		}
		if other, dup := seen[tag.Name]; dup {
			return nil, fmt.Errorf("field %s: column %q already mapped by %s", field.Name, tag.Name, other)
		}
		seen[tag.Name] = field.Name

		fi, err := buildFieldInfo(field, i, tag)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		pos := len(info.Fields)
		info.Fields = append(info.Fields, fi)

		switch {
		case tag.Key:
			keys++
			info.Key = fi
		case tag.Unique:
			info.UniqueFields = append(info.UniqueFields, fi)
		}
		if tag.Created {
			info.created = pos
		}
		if tag.Updated {
			info.updated = pos
		}
		if tag.Deleted {
			if !fi.IsPointer || fi.ElemType != timeType {
				return nil, fmt.Errorf("field %s: deleted column must be *time.Time", field.Name)
			}
			info.deleted = pos
		}
	}

	switch keys {
	case 0:
		return nil, fmt.Errorf("type %s has no key field", t.Name())
	case 1:
	default:
		return nil, fmt.Errorf("type %s has %d key fields, expected 1", t.Name(), keys)
	}

	if uk, ok := reflect.New(t).Interface().(UniqueKeyer); ok {
		fields, err := info.fieldsForColumns(uk.UniqueKeys())
		if err != nil {
			return nil, fmt.Errorf("type %s unique keys: %w", t.Name(), err)
		}
		info.UniqueFields = fields
	}

	return info, nil
}

// fieldsForColumns resolves column names to fields, dropping the key column
// and duplicates.
func (m *ModelInfo) fieldsForColumns(columns []string) ([]FieldInfo, error) {
	out := make([]FieldInfo, 0, len(columns))
	seen := make(map[string]bool)
	for _, col := range columns {
		if col == m.Key.Tag.Name || seen[col] {
			continue
		}
		fi, ok := m.FieldByColumn(col)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		seen[col] = true
		out = append(out, fi)
	}
	return out, nil
}

// WithUniqueColumns returns a copy of m whose unique-key set is columns.
func (m *ModelInfo) WithUniqueColumns(columns []string) (*ModelInfo, error) {
	fields, err := m.fieldsForColumns(columns)
	if err != nil {
		return nil, fmt.Errorf("%s unique keys: %w", m.TypeName, err)
	}
	cp := *m
	cp.UniqueFields = fields
	return &cp, nil
}

func buildFieldInfo(field reflect.StructField, index int, tag FieldTag) (FieldInfo, error) {
	fi := FieldInfo{
		Tag:        tag,
		FieldName:  field.Name,
		FieldIndex: index,
		FieldType:  field.Type,
		ElemType:   field.Type,
	}

	ft := field.Type
	if ft.Kind() == reflect.Ptr {
		fi.IsPointer = true
		ft = ft.Elem()
		fi.ElemType = ft
	}

	if ft.Implements(valuerType) && reflect.PointerTo(ft).Implements(scannerType) {
		fi.Scannable = true
		fi.Kind = ast.KindText
	} else {
		kind, encoded := columnKind(ft)
		fi.Kind = kind
		fi.Encoded = encoded
	}

	if (tag.Created || tag.Updated) && ft != timeType {
		return FieldInfo{}, fmt.Errorf("timestamp column must be time.Time or *time.Time, got %s", field.Type)
	}
	if tag.Key {
		if fi.Encoded || fi.IsPointer {
			return FieldInfo{}, fmt.Errorf("key column must be a non-pointer scalar, got %s", field.Type)
		}
		switch tag.Auto {
		case AutoUUID:
			if ft.Kind() != reflect.String && !fi.Scannable {
				return FieldInfo{}, fmt.Errorf("auto=uuid requires a string key, got %s", field.Type)
			}
		case AutoIncrement:
			if fi.Kind != ast.KindInteger {
				return FieldInfo{}, fmt.Errorf("auto=increment requires an integer key, got %s", field.Type)
			}
		}
	}
	return fi, nil
}

// columnKind maps a Go type to a storage class. Composite types are encoded.
func columnKind(t reflect.Type) (ast.ColumnKind, bool) {
	if t == timeType {
		return ast.KindTime, false
	}
	if t == bytesType {
		return ast.KindBlob, false
	}
	switch t.Kind() {
	case reflect.String:
		return ast.KindText, false
	case reflect.Bool:
		return ast.KindBool, false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ast.KindInteger, false
	case reflect.Float32, reflect.Float64:
		return ast.KindReal, false
	default:
		return ast.KindBlob, true
	}
}

// toSnakeCase converts a PascalCase Go name to snake_case.
// e.g. "EmailVerifiedAt" → "email_verified_at", "UserID" → "user_id",
// "HTTPServer" → "http_server".
func toSnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// toTableName derives the default table name: snake_case, pluralized.
func toTableName(typeName string) string {
	return pluralize(toSnakeCase(typeName))
}

func pluralize(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasSuffix(s, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "x"), strings.HasSuffix(s, "z"),
		strings.HasSuffix(s, "ch"), strings.HasSuffix(s, "sh"):
		return s + "es"
	default:
		return s + "s"
	}
}
