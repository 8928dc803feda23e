package gomodel

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/CaliLuke/go-modelservice/ast"
)

type testUser struct {
	ID        string     `db:"id,key,auto=uuid"`
	Name      string     `db:"name"`
	Email     string     `db:"email,unique"`
	Age       *int       `db:"age"`
	Tags      []string   `db:"tags"`
	Active    bool       `db:"active"`
	CreatedAt time.Time  `db:"created_at,created"`
	UpdatedAt time.Time  `db:"updated_at,updated"`
	DeletedAt *time.Time `db:"deleted_at,deleted"`
	Scratch   string
}

func (testUser) TableName() string { return "users" }

type testPost struct {
	ID    int64             `db:"id,key,auto=increment"`
	Slug  string            `db:"slug,unique"`
	Title string            `db:"title"`
	Score float64           `db:"score"`
	Meta  map[string]string `db:"meta"`
}

type testCategory struct {
	Code string `db:"code,key"`
	Name string `db:"name"`
}

func registerTestTypes(t *testing.T) {
	t.Helper()
	ClearRegistry()
	if err := Register[testUser](); err != nil {
		t.Fatalf("register testUser: %v", err)
	}
	if err := Register[testPost](); err != nil {
		t.Fatalf("register testPost: %v", err)
	}
	if err := Register[testCategory](); err != nil {
		t.Fatalf("register testCategory: %v", err)
	}
}

// openTestDB returns an in-memory sqlite database with the test tables created.
func openTestDB(t *testing.T, opts ...DatabaseOption) *Database {
	t.Helper()
	registerTestTypes(t)

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Every pooled connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := NewDatabase(sqlDB, ast.SQLite, opts...)
	ctx := t.Context()
	if err := CreateTable[testUser](ctx, db); err != nil {
		t.Fatalf("create users: %v", err)
	}
	if err := CreateTable[testPost](ctx, db); err != nil {
		t.Fatalf("create posts: %v", err)
	}
	if err := CreateTable[testCategory](ctx, db); err != nil {
		t.Fatalf("create categories: %v", err)
	}
	return db
}

// queryCounter counts round trips through a Database.
type queryCounter struct {
	n int
}

func (c *queryCounter) option() DatabaseOption {
	return WithObserver(QueryObserverFunc(func(_ context.Context, _ QueryEvent) { c.n++ }))
}

func intPtr(v int) *int {
	return &v
}
