package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/CaliLuke/go-modelservice/driver"
	"github.com/CaliLuke/go-modelservice/gomodel"
)

type user struct {
	ID        string     `db:"id,key,auto=uuid"`
	Name      string     `db:"name"`
	Email     string     `db:"email,unique"`
	Phone     *string    `db:"phone,unique"`
	CreatedAt time.Time  `db:"created_at,created"`
	UpdatedAt time.Time  `db:"updated_at,updated"`
	DeletedAt *time.Time `db:"deleted_at,deleted"`
}

func (user) TableName() string { return "users" }

type ticket struct {
	ID    int64  `db:"id,key,auto=increment"`
	Title string `db:"title"`
}

// badge has an integer unique column whose values overlap its keys.
type badge struct {
	ID   int64 `db:"id,key"`
	Code int64 `db:"code,unique"`
}

// queryCounter counts round trips through a Database.
type queryCounter struct {
	n int
}

func (c *queryCounter) observe(context.Context, gomodel.QueryEvent) { c.n++ }

func (c *queryCounter) reset() { c.n = 0 }

// openDB returns an in-memory sqlite database with the users and tickets
// tables, opened through driver.Open so unique violations are classified.
func openDB(t *testing.T) (*gomodel.Database, *queryCounter) {
	t.Helper()
	gomodel.ClearRegistry()
	if err := gomodel.Register[user](); err != nil {
		t.Fatalf("register user: %v", err)
	}
	if err := gomodel.Register[ticket](); err != nil {
		t.Fatalf("register ticket: %v", err)
	}
	if err := gomodel.Register[badge](); err != nil {
		t.Fatalf("register badge: %v", err)
	}

	qc := &queryCounter{}
	db, err := driver.Open(t.Context(), driver.Config{Driver: "sqlite", DSN: ":memory:"},
		driver.WithObserver(gomodel.QueryObserverFunc(qc.observe)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := t.Context()
	if err := gomodel.CreateTable[user](ctx, db); err != nil {
		t.Fatalf("create users: %v", err)
	}
	if err := gomodel.CreateTable[ticket](ctx, db); err != nil {
		t.Fatalf("create tickets: %v", err)
	}
	if err := gomodel.CreateTable[badge](ctx, db); err != nil {
		t.Fatalf("create badges: %v", err)
	}
	qc.reset()
	return db, qc
}

func newUsers(t *testing.T, opts ...Option) (*Service[user], *queryCounter) {
	t.Helper()
	db, qc := openDB(t)
	s, err := New[user](db, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, qc
}

// seedUsers creates n users named user1..userN with emails uN@example.com.
func seedUsers(t *testing.T, s *Service[user], qc *queryCounter, n int) []*user {
	t.Helper()
	out := make([]*user, 0, n)
	for i := 1; i <= n; i++ {
		u, err := s.Create(t.Context(), Attributes{
			"name":  "user" + strconv.Itoa(i),
			"email": "u" + strconv.Itoa(i) + "@example.com",
		})
		if err != nil {
			t.Fatalf("seed user %d: %v", i, err)
		}
		out = append(out, u)
	}
	qc.reset()
	return out
}

func seedTickets(t *testing.T, s *Service[ticket], qc *queryCounter, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if _, err := s.Create(t.Context(), Attributes{"title": "t" + strconv.Itoa(i)}); err != nil {
			t.Fatalf("seed ticket %d: %v", i, err)
		}
	}
	qc.reset()
}

func strPtr(s string) *string {
	return &s
}
