package sqlgen

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"strings"
	"text/template"
)

// RenderConfig specifies the settings for generating Go code from DDL.
type RenderConfig struct {
	// PackageName is the name of the Go package for the generated code.
	PackageName string
	// ModulePath is the import path of the gomodel package.
	ModulePath string
	// UseAcronyms, if true, applies Go acronym naming conventions (e.g., 'ID' instead of 'Id').
	UseAcronyms bool
	// Timestamps, if true, tags created_at, updated_at and deleted_at columns
	// as the model's timestamp columns.
	Timestamps bool
	// Register, if true, emits an init function registering every model.
	Register bool
	// SchemaVersion is an optional string included in the generated file header.
	SchemaVersion string
	// Enums, if true, generates string constants from CHECK (col IN (...)) constraints.
	Enums bool
}

// DefaultConfig returns a standard RenderConfig with sensible defaults.
func DefaultConfig() RenderConfig {
	return RenderConfig{
		PackageName: "models",
		ModulePath:  "github.com/CaliLuke/go-modelservice/gomodel",
		UseAcronyms: true,
		Timestamps:  true,
		Register:    true,
		Enums:       true,
	}
}

// Render processes a ParsedSchema and writes gofmt-formatted Go source to w.
func Render(w io.Writer, schema *ParsedSchema, cfg RenderConfig) error {
	if cfg.PackageName == "" {
		cfg.PackageName = "models"
	}
	if cfg.ModulePath == "" {
		cfg.ModulePath = DefaultConfig().ModulePath
	}

	data := &renderData{
		PackageName:   cfg.PackageName,
		ModulePath:    cfg.ModulePath,
		Register:      cfg.Register,
		SchemaVersion: cfg.SchemaVersion,
	}
	for _, t := range schema.Tables {
		tc, err := buildTableCtx(t, cfg)
		if err != nil {
			return err
		}
		for _, f := range tc.Fields {
			if strings.Contains(f.GoType, "time.Time") {
				data.NeedsTime = true
			}
		}
		if cfg.Enums {
			data.Enums = append(data.Enums, buildEnumCtxs(t, tc.GoName, cfg)...)
		}
		data.Tables = append(data.Tables, tc)
	}

	var buf bytes.Buffer
	if err := renderTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("format generated code: %w", err)
	}
	_, err = w.Write(src)
	return err
}

// --- Template context types ---

type renderData struct {
	PackageName   string
	ModulePath    string
	Register      bool
	SchemaVersion string
	NeedsTime     bool
	Enums         []enumCtx
	Tables        []tableCtx
}

type enumCtx struct {
	Table    string
	Column   string
	GoPrefix string
	Values   []enumValueCtx
}

type enumValueCtx struct {
	GoName string // e.g. "OrderStatusShipped"
	Value  string // e.g. "shipped"
}

type tableCtx struct {
	GoName string
	Table  string
	Fields []fieldCtx
}

type fieldCtx struct {
	GoName  string
	GoType  string
	Tag     string
	Comment string
}

// --- Context builders ---

func buildTableCtx(t TableSpec, cfg RenderConfig) (tableCtx, error) {
	ctx := tableCtx{
		GoName: goName(Singularize(t.Name), cfg),
		Table:  t.Name,
	}
	hasKey := false
	for _, c := range t.Columns {
		if c.PrimaryKey {
			hasKey = true
		}
		ctx.Fields = append(ctx.Fields, buildFieldCtx(c, cfg))
	}
	if !hasKey {
		return tableCtx{}, fmt.Errorf("table %q: no primary key", t.Name)
	}
	return ctx, nil
}

func buildFieldCtx(c ColumnSpec, cfg RenderConfig) fieldCtx {
	goType := sqlToGo(c.Type)
	if c.Nullable() && goType != "[]byte" {
		goType = "*" + goType
	}

	tagParts := []string{c.Name}
	if c.PrimaryKey {
		tagParts = append(tagParts, "key")
		switch {
		case c.AutoIncrement:
			tagParts = append(tagParts, "auto=increment")
		case c.Type == "UUID":
			tagParts = append(tagParts, "auto=uuid")
		}
	}
	if c.Unique {
		tagParts = append(tagParts, "unique")
	}
	if cfg.Timestamps {
		if opt := timestampOption(c, goType); opt != "" {
			tagParts = append(tagParts, opt)
		}
	}

	f := fieldCtx{
		GoName: goName(c.Name, cfg),
		GoType: goType,
		Tag:    fmt.Sprintf("`db:\"%s\"`", strings.Join(tagParts, ",")),
	}
	if c.References != "" {
		f.Comment = "references " + c.References
	}
	return f
}

// timestampOption returns the tag option for conventional timestamp columns.
// The deleted column must be nullable.
func timestampOption(c ColumnSpec, goType string) string {
	if strings.TrimPrefix(goType, "*") != "time.Time" {
		return ""
	}
	switch c.Name {
	case "created_at":
		return "created"
	case "updated_at":
		return "updated"
	case "deleted_at":
		if c.Nullable() {
			return "deleted"
		}
	}
	return ""
}

func buildEnumCtxs(t TableSpec, typeName string, cfg RenderConfig) []enumCtx {
	var out []enumCtx
	for _, c := range t.Columns {
		if len(c.Values) == 0 {
			continue
		}
		ctx := enumCtx{
			Table:    t.Name,
			Column:   c.Name,
			GoPrefix: typeName + goName(c.Name, cfg),
		}
		for _, v := range c.Values {
			ctx.Values = append(ctx.Values, enumValueCtx{
				GoName: ctx.GoPrefix + goName(v, cfg),
				Value:  v,
			})
		}
		out = append(out, ctx)
	}
	return out
}

func goName(name string, cfg RenderConfig) string {
	if cfg.UseAcronyms {
		return ToPascalCaseAcronyms(name)
	}
	return ToPascalCase(name)
}

// sqlToGo maps a declared SQL type to a Go type, following sqlite's type
// affinity rules for names it does not know.
func sqlToGo(sqlType string) string {
	base, _, _ := strings.Cut(sqlType, " ")
	switch base {
	case "BOOL", "BOOLEAN":
		return "bool"
	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME", "DATE":
		return "time.Time"
	case "DOUBLE", "REAL", "FLOAT", "FLOAT4", "FLOAT8", "NUMERIC", "DECIMAL":
		return "float64"
	case "BLOB", "BYTEA":
		return "[]byte"
	}
	switch {
	case strings.Contains(base, "INT") || strings.HasSuffix(base, "SERIAL"):
		return "int64"
	case base == "":
		return "[]byte"
	}
	return "string"
}

// --- Go template ---

var renderTemplate = template.Must(template.New("models").Parse(`// Code generated by sqlgen. DO NOT EDIT.
{{- if .SchemaVersion}}
// Schema version: {{.SchemaVersion}}
{{- end}}

package {{.PackageName}}
{{if or .NeedsTime .Register}}
import (
{{- if .NeedsTime}}
	"time"
{{- end}}
{{- if .Register}}

	"{{.ModulePath}}"
{{- end}}
)
{{end}}
{{- range .Enums}}
// {{.GoPrefix}} values for the "{{.Table}}.{{.Column}}" column.
const (
{{- range .Values}}
	{{.GoName}} = {{printf "%q" .Value}}
{{- end}}
)
{{end}}
{{- range .Tables}}
// {{.GoName}} maps the "{{.Table}}" table.
type {{.GoName}} struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}} {{.Tag}}{{if .Comment}} // {{.Comment}}{{end}}
{{- end}}
}

// TableName implements gomodel.Tabler.
func ({{.GoName}}) TableName() string { return {{printf "%q" .Table}} }
{{end}}
{{- if .Register}}
func init() {
{{- range .Tables}}
	gomodel.MustRegister[{{.GoName}}]()
{{- end}}
}
{{- end}}
`))
