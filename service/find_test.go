package service

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

func ids(items []*user) []string {
	out := make([]string, len(items))
	for i, u := range items {
		out[i] = u.ID
	}
	return out
}

func TestFind_EmptyIssuesNoQuery(t *testing.T) {
	s, qc := newUsers(t)
	ctx := t.Context()

	for name, refs := range map[string][]Ref{
		"no refs":     nil,
		"nil":         {ID(nil)},
		"empty group": {IDs[string]()},
		"blank":       {ID(""), Entity[user](nil)},
	} {
		r, err := s.Find(ctx, refs...)
		if err != nil {
			t.Fatalf("%s: Find failed: %v", name, err)
		}
		if !r.Empty() || r.IsMany() {
			t.Errorf("%s: Find = %v, want empty single", name, r.All())
		}
	}
	if _, err := s.WhereUniqueKey(ctx); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.HasOne(ctx, ID(nil)); err != nil || ok {
		t.Errorf("HasOne(nil) = %v, %v", ok, err)
	}
	if qc.n != 0 {
		t.Errorf("issued %d queries, want 0", qc.n)
	}
}

func TestFind_SingleAndCollection(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 3)
	ctx := t.Context()

	r, err := s.Find(ctx, ID(users[1].ID))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if r.IsMany() || r.One() == nil || r.One().Email != "u2@example.com" {
		t.Errorf("Find single = %+v", r.One())
	}

	r, err = s.Find(ctx, Entity(users[0]), ID(users[2].ID), ID(users[0].ID))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if !r.IsMany() || r.Len() != 2 {
		t.Errorf("Find many = %v, want 2 rows", ids(r.All()))
	}
	if qc.n != 2 {
		t.Errorf("issued %d queries, want 2", qc.n)
	}

	r, err = s.Find(ctx, ID("missing"))
	if err != nil || !r.Empty() {
		t.Errorf("Find missing = %v, %v", r.All(), err)
	}
}

func TestFindOrFail(t *testing.T) {
	db, qc := openDB(t)
	s := MustNew[ticket](db)
	seedTickets(t, s, qc, 3)
	ctx := t.Context()

	_, err := s.FindOrFail(ctx, IDs(1, 2, 99))
	var nf *gomodel.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !reflect.DeepEqual(nf.Keys, []any{99}) {
		t.Errorf("Keys = %v, want [99]", nf.Keys)
	}

	r, err := s.FindOrFail(ctx, IDs(1, 2, 99), RequireAny())
	if err != nil {
		t.Fatalf("FindOrFail any failed: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("got %d rows, want 2", r.Len())
	}

	if _, err := s.FindOrFail(ctx, ID(42)); !errors.As(err, &nf) {
		t.Errorf("single miss should fail, got %v", err)
	}
	if _, err := s.FindOrFail(ctx, ID(nil)); !errors.As(err, &nf) {
		t.Errorf("empty ref should fail, got %v", err)
	}
	if r, err := s.FindOrFail(ctx, ID("3")); err != nil || r.One().Title != "t3" {
		t.Errorf("FindOrFail(\"3\") = %+v, %v", r.One(), err)
	}

	items, err := s.FindManyOrFail(ctx, ID([]int{1, 3}))
	if err != nil || len(items) != 2 {
		t.Errorf("FindManyOrFail = %d, %v", len(items), err)
	}
	if _, err := s.FindManyOrFail(ctx, IDs(98, 99), RequireAny()); !errors.As(err, &nf) {
		t.Errorf("no match should fail under any, got %v", err)
	}
}

func TestFindOrNewAndFindOr(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 1)
	ctx := t.Context()

	u, err := s.FindOrNew(ctx, ID("missing"))
	if err != nil || u == nil || u.ID != "" {
		t.Errorf("FindOrNew miss = %+v, %v", u, err)
	}
	u, err = s.FindOrNew(ctx, Entity(users[0]))
	if err != nil || u.ID != users[0].ID {
		t.Errorf("FindOrNew hit = %+v, %v", u, err)
	}

	sentinel := errors.New("fallback")
	if _, err := s.FindOr(ctx, ID("missing"), func() (*user, error) { return nil, sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("FindOr should return the fallback error, got %v", err)
	}
}

func TestFindTrashed(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 2)
	ctx := t.Context()

	if err := s.Delete(ctx, users[0]); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if r, _ := s.Find(ctx, ID(users[0].ID)); !r.Empty() {
		t.Error("trashed rows should be hidden from Find")
	}
	got, err := s.FindTrashed(ctx, ID(users[0].ID))
	if err != nil || got == nil || got.DeletedAt == nil {
		t.Fatalf("FindTrashed = %+v, %v", got, err)
	}
	if got, _ := s.FindTrashed(ctx, ID(users[1].ID)); got != nil {
		t.Error("live rows are not trashed")
	}
}

func TestLatestOldestRandom(t *testing.T) {
	s, _ := newUsers(t)
	ctx := t.Context()

	if u, err := s.Random(ctx); err != nil || u != nil {
		t.Errorf("Random on empty table = %+v, %v", u, err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, row := range []struct {
		email  string
		offset time.Duration
	}{
		{"mid@x.com", time.Hour},
		{"old@x.com", 0},
		{"new@x.com", 2 * time.Hour},
	} {
		if _, err := s.Create(ctx, Attributes{"email": row.email, "created_at": base.Add(row.offset)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	latest, err := s.Latest(ctx)
	if err != nil || latest.Email != "new@x.com" {
		t.Errorf("Latest = %+v, %v", latest, err)
	}
	oldest, err := s.Oldest(ctx)
	if err != nil || oldest.Email != "old@x.com" {
		t.Errorf("Oldest = %+v, %v", oldest, err)
	}
	if u, err := s.Random(ctx); err != nil || u == nil {
		t.Errorf("Random = %+v, %v", u, err)
	}

	db, _ := openDB(t)
	if _, err := MustNew[ticket](db).Latest(ctx); err == nil {
		t.Error("Latest without a created column should fail")
	}
}

func TestWhereUniqueKey(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 3)
	u := users[1]
	ctx := t.Context()

	tests := []struct {
		name string
		refs []Ref
	}{
		{"by key", []Ref{ID(u.ID)}},
		{"by email", []Ref{ID(u.Email)}},
		{"by key and email", []Ref{ID(u.ID), ID(u.Email)}},
		{"by entity", []Ref{Entity(u)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc.reset()
			got, err := s.WhereUniqueKey(ctx, tt.refs...)
			if err != nil {
				t.Fatalf("WhereUniqueKey failed: %v", err)
			}
			if !reflect.DeepEqual(ids(got), []string{u.ID}) {
				t.Errorf("got %v, want [%s]", ids(got), u.ID)
			}
			if qc.n != 1 {
				t.Errorf("issued %d queries, want 1", qc.n)
			}
		})
	}

	first, err := s.FirstWhereUniqueKey(ctx, ID("u3@example.com"))
	if err != nil || first == nil || first.ID != users[2].ID {
		t.Errorf("FirstWhereUniqueKey = %+v, %v", first, err)
	}
}

func TestWhereUniqueKeyNot(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 5)
	ctx := t.Context()

	got, err := s.WhereUniqueKeyNot(ctx, ID(users[0].ID))
	if err != nil {
		t.Fatalf("WhereUniqueKeyNot failed: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("got %d rows, want 4", len(got))
	}
	for _, u := range got {
		if u.ID == users[0].ID {
			t.Error("excluded row returned")
		}
	}

	got, err = s.WhereUniqueKeyNot(ctx, Entity(users[1]), ID("u3@example.com"))
	if err != nil || len(got) != 3 {
		t.Errorf("exclude by entity and email = %d, %v; want 3", len(got), err)
	}

	qc.reset()
	all, err := s.WhereUniqueKeyNot(ctx)
	if err != nil || len(all) != 5 {
		t.Errorf("empty exclusion = %d, %v; want 5", len(all), err)
	}
	if qc.n != 1 {
		t.Errorf("empty exclusion issued %d queries, want 1", qc.n)
	}
}

func TestWhereKey(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 3)
	ctx := t.Context()

	got, err := s.WhereKey(ctx, ID(users[0].ID), ID(users[0].Email))
	if err != nil || !reflect.DeepEqual(ids(got), []string{users[0].ID}) {
		t.Errorf("WhereKey = %v, %v", ids(got), err)
	}
	got, err = s.WhereKeyNot(ctx, Entity(users[0]))
	if err != nil || len(got) != 2 {
		t.Errorf("WhereKeyNot = %v, %v", ids(got), err)
	}
	got, err = s.WhereKeyNot(ctx)
	if err != nil || len(got) != 3 {
		t.Errorf("WhereKeyNot() = %v, %v", ids(got), err)
	}
}

func TestWherePredicates(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 5)
	ctx := t.Context()

	got, err := s.WhereAttrs(ctx, Attributes{"name": "user2"})
	if err != nil || len(got) != 1 || got[0].ID != users[1].ID {
		t.Errorf("WhereAttrs = %v, %v", ids(got), err)
	}
	got, err = s.Where(ctx, gomodel.Startswith("name", "user"), gomodel.Neq("email", "u1@example.com"))
	if err != nil || len(got) != 4 {
		t.Errorf("Where = %v, %v", ids(got), err)
	}

	first, err := s.FirstWhere(ctx, gomodel.Eq("email", "u4@example.com"))
	if err != nil || first == nil || first.Name != "user4" {
		t.Errorf("FirstWhere = %+v, %v", first, err)
	}
	if first, err := s.FirstWhereAttrs(ctx, Attributes{"Email": "none@x.com"}); err != nil || first != nil {
		t.Errorf("FirstWhereAttrs miss = %+v, %v", first, err)
	}
	if _, err := s.WhereAttrs(ctx, Attributes{"bogus": 1}); err == nil {
		t.Error("unknown attribute should fail")
	}

	// Each pair is negated on its own: neither user1 nor u2@example.com.
	got, err = s.WhereNotAttrs(ctx, Attributes{"name": "user1", "email": "u2@example.com"})
	if err != nil || len(got) != 3 {
		t.Errorf("WhereNotAttrs = %v, %v; want 3 rows", ids(got), err)
	}
	got, err = s.WhereNot(ctx, gomodel.Eq("name", "user5"))
	if err != nil || len(got) != 4 {
		t.Errorf("WhereNot = %v, %v", ids(got), err)
	}
}

func TestCond(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 3)
	ctx := t.Context()

	for name, value := range map[string]any{
		"entity":     users[2],
		"entity ref": Entity(users[2]),
		"scalar":     users[2].Email,
	} {
		got, err := s.Where(ctx, s.Cond("email", "=", value))
		if err != nil || len(got) != 1 || got[0].ID != users[2].ID {
			t.Errorf("%s: Where(Cond) = %v, %v", name, ids(got), err)
		}
	}
}

func TestHas(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 2)
	a, b := users[0], users[1]
	ctx := t.Context()

	tests := []struct {
		name string
		call func() (bool, error)
		want bool
	}{
		{"one by key", func() (bool, error) { return s.HasOne(ctx, ID(a.ID)) }, true},
		{"one by email", func() (bool, error) { return s.HasOne(ctx, ID("u2@example.com")) }, true},
		{"one partial", func() (bool, error) { return s.HasOne(ctx, ID("missing"), ID(a.ID)) }, true},
		{"one missing", func() (bool, error) { return s.HasOne(ctx, ID("missing")) }, false},
		{"all present", func() (bool, error) { return s.HasAll(ctx, ID(a.ID), Entity(b)) }, true},
		{"all partial", func() (bool, error) { return s.HasAll(ctx, ID(a.ID), ID("missing")) }, false},
		{"all repeated", func() (bool, error) { return s.HasAll(ctx, ID(a.ID), ID(a.ID)) }, true},
		{"all repeated with miss", func() (bool, error) { return s.HasAll(ctx, ID(a.ID), ID(a.ID), ID("x")) }, false},
		{"all key and own email", func() (bool, error) { return s.HasAll(ctx, ID(a.ID), ID(a.Email)) }, false},
		{"all entity and own email", func() (bool, error) { return s.HasAll(ctx, Entity(a), ID(a.Email)) }, false},
		{"all key and other email", func() (bool, error) { return s.HasAll(ctx, ID(a.ID), ID(b.Email)) }, true},
		{"all emails", func() (bool, error) { return s.HasAll(ctx, ID(a.Email), ID(b.Email)) }, true},
		{"has any", func() (bool, error) { return s.Has(ctx, IDs(a.ID, "missing")) }, true},
		{"has all", func() (bool, error) { return s.Has(ctx, IDs(a.ID, "missing"), RequireAll()) }, false},
		{"where", func() (bool, error) { return s.HasWhere(ctx, gomodel.Eq("name", "user2")) }, true},
		{"where miss", func() (bool, error) { return s.HasWhere(ctx, gomodel.Eq("name", "nobody")) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc.reset()
			got, err := tt.call()
			if err != nil {
				t.Fatalf("failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if qc.n != 1 {
				t.Errorf("issued %d queries, want 1", qc.n)
			}
		})
	}

	qc.reset()
	if ok, err := s.HasAll(ctx); err != nil || !ok {
		t.Errorf("HasAll() = %v, %v; want vacuous true", ok, err)
	}
	if qc.n != 0 {
		t.Errorf("HasAll() issued %d queries, want 0", qc.n)
	}
}

func TestHasAll_OverlappingUniqueColumn(t *testing.T) {
	db, qc := openDB(t)
	s := MustNew[badge](db)
	ctx := t.Context()
	for _, b := range []*badge{{ID: 1, Code: 7}, {ID: 2, Code: 1}} {
		if err := s.Insert(ctx, b); err != nil {
			t.Fatalf("insert badge %d: %v", b.ID, err)
		}
	}

	tests := []struct {
		name string
		refs []Ref
		want bool
	}{
		{"key shared with a code", []Ref{ID(1)}, true},
		{"missing key beside a shared one", []Ref{ID(1), ID(99)}, false},
		{"both keys", []Ref{ID(1), ID(2)}, true},
		{"code and key", []Ref{ID(7), ID(1)}, true},
		{"three values two rows", []Ref{ID(7), ID(2), ID(1)}, false},
		{"same key spelled twice", []Ref{ID(1), ID("1")}, true},
		{"missing code", []Ref{ID(8)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc.reset()
			got, err := s.HasAll(ctx, tt.refs...)
			if err != nil {
				t.Fatalf("HasAll failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasAll = %v, want %v", got, tt.want)
			}
			if qc.n != 1 {
				t.Errorf("issued %d queries, want 1", qc.n)
			}
		})
	}
}

func TestFind_KeySpellingsCollapse(t *testing.T) {
	db, qc := openDB(t)
	s := MustNew[ticket](db)
	seedTickets(t, s, qc, 2)
	ctx := t.Context()

	r, err := s.Find(ctx, ID(1), ID("1"), ID(int32(1)))
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if r.IsMany() || r.One() == nil || r.One().ID != 1 {
		t.Errorf("Find = %+v (many=%v), want the single ticket 1", r.All(), r.IsMany())
	}
}
