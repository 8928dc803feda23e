package sqlgen_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/CaliLuke/go-modelservice/ast"
	"github.com/CaliLuke/go-modelservice/gomodel"
	"github.com/CaliLuke/go-modelservice/sqlgen"
)

type invoice struct {
	ID        int64      `db:"id,key,auto=increment"`
	Number    string     `db:"number,unique"`
	Amount    float64    `db:"amount"`
	Paid      bool       `db:"paid"`
	Note      *string    `db:"note"`
	Scan      []byte     `db:"scan"`
	CreatedAt time.Time  `db:"created_at,created"`
	DeletedAt *time.Time `db:"deleted_at,deleted"`
}

// TestRoundTrip parses the DDL gomodel generates and renders it back into a
// struct carrying the same tags.
func TestRoundTrip(t *testing.T) {
	gomodel.ClearRegistry()
	t.Cleanup(gomodel.ClearRegistry)
	gomodel.MustRegister[invoice]()

	tests := []struct {
		dialect ast.Dialect
		types   map[string]string
	}{
		{ast.SQLite, map[string]string{"id": "INTEGER", "amount": "REAL", "paid": "INTEGER", "created_at": "TEXT"}},
		{ast.Postgres, map[string]string{"id": "BIGSERIAL", "amount": "DOUBLE PRECISION", "paid": "BOOLEAN", "created_at": "TIMESTAMPTZ"}},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			ddl, err := gomodel.GenerateSchema(tt.dialect)
			if err != nil {
				t.Fatalf("GenerateSchema: %v", err)
			}
			schema, err := sqlgen.ParseSchema(ddl)
			if err != nil {
				t.Fatalf("ParseSchema: %v\n%s", err, ddl)
			}
			table, ok := schema.Table("invoices")
			if !ok {
				t.Fatalf("invoices table missing from %+v", schema)
			}

			for col, typ := range tt.types {
				got, _ := table.Column(col)
				if got.Type != typ {
					t.Errorf("%s type = %q, want %q", col, got.Type, typ)
				}
			}
			if id, _ := table.Column("id"); !id.PrimaryKey || !id.AutoIncrement {
				t.Errorf("id = %+v; want auto increment key", id)
			}
			if number, _ := table.Column("number"); !number.Unique || !number.NotNull {
				t.Errorf("number = %+v; want unique not null", number)
			}
			if note, _ := table.Column("note"); !note.Nullable() {
				t.Errorf("note = %+v; want nullable", note)
			}

			var buf bytes.Buffer
			if err := sqlgen.Render(&buf, schema, sqlgen.DefaultConfig()); err != nil {
				t.Fatalf("Render: %v", err)
			}
			out := strings.Join(strings.Fields(buf.String()), " ")
			for _, want := range []string{
				"type Invoice struct {",
				"`db:\"id,key,auto=increment\"`",
				"`db:\"number,unique\"`",
				"Note *string `db:\"note\"`",
			} {
				if !strings.Contains(out, want) {
					t.Errorf("missing %q\n%s", want, buf.String())
				}
			}
		})
	}
}
