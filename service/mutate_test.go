package service

import (
	"errors"
	"testing"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

func count(t *testing.T, s *Service[user]) int64 {
	t.Helper()
	n, err := s.Query().WithTrashed().Count(t.Context())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestFirstOrNewAndFirstOrCreate(t *testing.T) {
	s, qc := newUsers(t)
	seedUsers(t, s, qc, 1)
	ctx := t.Context()

	u, err := s.FirstOrNew(ctx, Attributes{"email": "u1@example.com"}, Attributes{"name": "ignored"})
	if err != nil || u.Name != "user1" {
		t.Errorf("FirstOrNew hit = %+v, %v", u, err)
	}
	u, err = s.FirstOrNew(ctx, Attributes{"email": "new@x.com"}, Attributes{"name": "New"})
	if err != nil || u.ID != "" || u.Email != "new@x.com" || u.Name != "New" {
		t.Errorf("FirstOrNew miss = %+v, %v", u, err)
	}
	if n := count(t, s); n != 1 {
		t.Errorf("FirstOrNew must not persist, rows = %d", n)
	}

	u, err = s.FirstOrCreate(ctx, Attributes{"email": "new@x.com"}, Attributes{"name": "New"})
	if err != nil || u.ID == "" {
		t.Fatalf("FirstOrCreate miss = %+v, %v", u, err)
	}
	again, err := s.FirstOrCreate(ctx, Attributes{"email": "new@x.com"}, Attributes{"name": "Other"})
	if err != nil || again.ID != u.ID || again.Name != "New" {
		t.Errorf("FirstOrCreate hit = %+v, %v", again, err)
	}
}

func TestCreateOrFirst_Idempotent(t *testing.T) {
	s, _ := newUsers(t)
	ctx := t.Context()

	first, err := s.CreateOrFirst(ctx, Attributes{"email": "dup@x.com"}, Attributes{"name": "First"})
	if err != nil {
		t.Fatalf("CreateOrFirst failed: %v", err)
	}
	second, err := s.CreateOrFirst(ctx, Attributes{"email": "dup@x.com"}, Attributes{"name": "Second"})
	if err != nil {
		t.Fatalf("CreateOrFirst on conflict failed: %v", err)
	}
	if second.ID != first.ID || second.Name != "First" {
		t.Errorf("second call = %+v, want the row of the first call %s", second, first.ID)
	}
	if n := count(t, s); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestCreateOrFirst_InsideTransaction(t *testing.T) {
	s, qc := newUsers(t)
	ctx := t.Context()
	first, err := s.Create(ctx, Attributes{"email": "dup@x.com", "name": "First"})
	if err != nil {
		t.Fatal(err)
	}

	qc.reset()
	var got *user
	err = s.Transaction(ctx, func(tx *Service[user]) error {
		var err error
		if got, err = tx.CreateOrFirst(ctx, Attributes{"email": "dup@x.com"}, Attributes{"name": "Second"}); err != nil {
			return err
		}
		_, err = tx.Create(ctx, Attributes{"email": "after@x.com", "name": "After"})
		return err
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}
	if got == nil || got.ID != first.ID || got.Name != "First" {
		t.Errorf("CreateOrFirst = %+v, want the existing row %s", got, first.ID)
	}
	// savepoint, failed insert, rollback to savepoint, re-read, insert
	if qc.n != 5 {
		t.Errorf("issued %d queries, want 5", qc.n)
	}
	if n := count(t, s); n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}
}

func TestCreateOrFirst_ConflictOutsideAttributes(t *testing.T) {
	s, _ := newUsers(t)
	ctx := t.Context()
	if _, err := s.Create(ctx, Attributes{"email": "a@x.com", "phone": "555"}); err != nil {
		t.Fatal(err)
	}

	// The conflict is on phone, but the re-read looks for email b@x.com.
	_, err := s.CreateOrFirst(ctx, Attributes{"email": "b@x.com"}, Attributes{"phone": "555"})
	var uv *gomodel.UniqueViolationError
	if !errors.As(err, &uv) {
		t.Fatalf("expected the original UniqueViolationError, got %v", err)
	}
}

func TestUpdateOrCreate_RoundTrip(t *testing.T) {
	s, _ := newUsers(t)
	ctx := t.Context()

	a, err := s.UpdateOrCreate(ctx, Attributes{"email": "a@a.com"}, Attributes{"name": "A"})
	if err != nil {
		t.Fatalf("UpdateOrCreate create failed: %v", err)
	}
	b, err := s.UpdateOrCreate(ctx, Attributes{"email": "a@a.com"}, Attributes{"name": "B"})
	if err != nil {
		t.Fatalf("UpdateOrCreate update failed: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("update created a new row: %s vs %s", a.ID, b.ID)
	}

	rows, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Name != "B" {
		t.Errorf("rows = %+v, want one row named B", rows)
	}
}

func TestIfNotExists(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 1)
	ctx := t.Context()

	tests := []struct {
		name    string
		attrs   Attributes
		wantNil bool
	}{
		{"taken email", Attributes{"email": "u1@example.com"}, true},
		{"taken email by field name", Attributes{"Email": "u1@example.com"}, true},
		{"taken key", Attributes{"id": users[0].ID, "email": "fresh@x.com"}, true},
		{"free", Attributes{"email": "fresh@x.com", "name": "Fresh"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc.reset()
			got, err := s.MakeIfNotExists(ctx, tt.attrs)
			if err != nil {
				t.Fatalf("MakeIfNotExists failed: %v", err)
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("got %+v, want nil = %v", got, tt.wantNil)
			}
			if qc.n != 1 {
				t.Errorf("issued %d queries, want 1", qc.n)
			}
		})
	}

	qc.reset()
	if got, err := s.MakeIfNotExists(ctx, Attributes{"name": "no unique values"}); err != nil || got == nil {
		t.Errorf("MakeIfNotExists without unique values = %+v, %v", got, err)
	}
	if qc.n != 0 {
		t.Errorf("no unique values should skip the check, issued %d queries", qc.n)
	}

	created, err := s.CreateIfNotExists(ctx, Attributes{"email": "fresh@x.com"})
	if err != nil || created == nil || created.ID == "" {
		t.Fatalf("CreateIfNotExists = %+v, %v", created, err)
	}
	if again, err := s.CreateIfNotExists(ctx, Attributes{"email": "fresh@x.com"}); err != nil || again != nil {
		t.Errorf("second CreateIfNotExists = %+v, %v", again, err)
	}

	// Trashed rows still hold their unique values.
	if err := s.Delete(ctx, created); err != nil {
		t.Fatal(err)
	}
	if again, err := s.CreateIfNotExists(ctx, Attributes{"email": "fresh@x.com"}); err != nil || again != nil {
		t.Errorf("CreateIfNotExists over trashed row = %+v, %v", again, err)
	}
}

func TestGroups(t *testing.T) {
	s, qc := newUsers(t)
	seedUsers(t, s, qc, 1)
	ctx := t.Context()

	group := []Attributes{
		{"email": "g1@x.com"},
		{"email": "u1@example.com"},
		{"email": "g2@x.com"},
	}
	made, err := s.MakeGroup(group)
	if err != nil || len(made) != 3 {
		t.Errorf("MakeGroup = %d, %v", len(made), err)
	}
	made, err = s.MakeGroupIfNotExists(ctx, group)
	if err != nil || len(made) != 2 {
		t.Errorf("MakeGroupIfNotExists = %d, %v; want 2", len(made), err)
	}

	created, err := s.CreateGroupIfNotExists(ctx, append(group, Attributes{"email": "g1@x.com"}))
	if err != nil || len(created) != 2 {
		t.Errorf("CreateGroupIfNotExists = %d, %v; want 2", len(created), err)
	}
	if n := count(t, s); n != 3 {
		t.Errorf("rows = %d, want 3", n)
	}

	// A failing member rolls back the whole group.
	_, err = s.CreateGroup(ctx, []Attributes{{"email": "g3@x.com"}, {"email": "g1@x.com"}})
	var uv *gomodel.UniqueViolationError
	if !errors.As(err, &uv) {
		t.Fatalf("expected UniqueViolationError, got %v", err)
	}
	if n := count(t, s); n != 3 {
		t.Errorf("rows = %d after rollback, want 3", n)
	}

	created, err = s.CreateGroup(ctx, []Attributes{{"email": "g3@x.com"}, {"email": "g4@x.com"}})
	if err != nil || len(created) != 2 || created[1].ID == "" {
		t.Errorf("CreateGroup = %+v, %v", created, err)
	}
}

func TestMutations(t *testing.T) {
	s, qc := newUsers(t)
	users := seedUsers(t, s, qc, 3)
	ctx := t.Context()

	u, err := s.Update(ctx, users[0], Attributes{"name": "Renamed"})
	if err != nil || u.Name != "Renamed" {
		t.Fatalf("Update = %+v, %v", u, err)
	}
	stored, _ := s.FindOrFail(ctx, ID(users[0].ID))
	if stored.One().Name != "Renamed" {
		t.Errorf("stored name = %q", stored.One().Name)
	}

	e, err := s.Make(Attributes{"email": "made@x.com"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, e); err != nil || e.ID == "" {
		t.Fatalf("Save new = %v", err)
	}
	e.Name = "Saved"
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save existing = %v", err)
	}
	if err := s.Insert(ctx, &user{Email: "ins@x.com"}); err != nil {
		t.Fatalf("Insert = %v", err)
	}

	if err := s.Delete(ctx, users[1]); err != nil {
		t.Fatalf("Delete = %v", err)
	}
	var nf *gomodel.NotFoundError
	if err := s.Delete(ctx, users[1]); !errors.As(err, &nf) {
		t.Errorf("second Delete should be NotFound, got %v", err)
	}
	if err := s.Restore(ctx, users[1]); err != nil || users[1].DeletedAt != nil {
		t.Fatalf("Restore = %v", err)
	}
	if ok, _ := s.HasOne(ctx, ID(users[1].ID)); !ok {
		t.Error("restored row should be visible")
	}

	if err := s.ForceDelete(ctx, users[2]); err != nil {
		t.Fatalf("ForceDelete = %v", err)
	}
	if got, _ := s.FindTrashed(ctx, ID(users[2].ID)); got != nil {
		t.Error("force deleted row should be gone")
	}
	if n := count(t, s); n != 4 {
		t.Errorf("rows = %d, want 4", n)
	}

	if err := s.Truncate(ctx); err != nil {
		t.Fatalf("Truncate = %v", err)
	}
	if n := count(t, s); n != 0 {
		t.Errorf("rows = %d after truncate", n)
	}
}
