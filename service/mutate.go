package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

// --- upserts ---

// FirstOrNew returns the first entity matching attributes, or a new unsaved
// entity filled from attributes and values.
func (s *Service[T]) FirstOrNew(ctx context.Context, attributes, values Attributes) (*T, error) {
	e, err := s.FirstWhereAttrs(ctx, attributes)
	if err != nil || e != nil {
		return e, err
	}
	return s.Make(merge(attributes, values))
}

// FirstOrCreate returns the first entity matching attributes, or creates one
// from attributes and values.
func (s *Service[T]) FirstOrCreate(ctx context.Context, attributes, values Attributes) (*T, error) {
	e, err := s.FirstWhereAttrs(ctx, attributes)
	if err != nil || e != nil {
		return e, err
	}
	return s.Create(ctx, merge(attributes, values))
}

// CreateOrFirst creates an entity from attributes and values. When the insert
// violates a unique constraint, the row matching attributes is returned
// instead. Other store errors propagate. Inside a transaction the insert runs
// under a savepoint, so the failed statement does not poison the re-read.
func (s *Service[T]) CreateOrFirst(ctx context.Context, attributes, values Attributes) (*T, error) {
	var e *T
	err := s.db.Savepoint(ctx, func(sp *gomodel.Database) error {
		var cerr error
		e, cerr = s.WithDatabase(sp).Create(ctx, merge(attributes, values))
		return cerr
	})
	if err == nil {
		return e, nil
	}
	var uv *gomodel.UniqueViolationError
	if !errors.As(err, &uv) {
		return nil, err
	}
	s.log.DebugContext(ctx, "unique conflict, reading existing row",
		slog.String("model", s.info.TypeName),
		slog.String("constraint", uv.Constraint),
	)
	existing, ferr := s.FirstWhereAttrs(ctx, attributes)
	if ferr != nil {
		return nil, ferr
	}
	if existing == nil {
		return nil, err
	}
	return existing, nil
}

// UpdateOrCreate updates the first entity matching attributes with values,
// or creates one from both. The read and the write are separate round trips;
// run it inside Transaction when they must be atomic.
func (s *Service[T]) UpdateOrCreate(ctx context.Context, attributes, values Attributes) (*T, error) {
	e, err := s.FirstWhereAttrs(ctx, attributes)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return s.Create(ctx, merge(attributes, values))
	}
	return s.Update(ctx, e, values)
}

// --- construction ---

// Make returns a new unsaved entity filled from attrs. Keys are column or
// field names; unknown keys are ignored.
func (s *Service[T]) Make(attrs Attributes) (*T, error) {
	e := new(T)
	if err := s.mgr.Fill(e, attrs); err != nil {
		return nil, err
	}
	return e, nil
}

// MakeIfNotExists is Make that returns nil when a stored row already holds
// one of the key or unique values present in attrs.
func (s *Service[T]) MakeIfNotExists(ctx context.Context, attrs Attributes) (*T, error) {
	taken, err := s.conflicts(ctx, attrs)
	if err != nil || taken {
		return nil, err
	}
	return s.Make(attrs)
}

// MakeGroup makes one unsaved entity per attribute set.
func (s *Service[T]) MakeGroup(group []Attributes) ([]*T, error) {
	out := make([]*T, 0, len(group))
	for _, attrs := range group {
		e, err := s.Make(attrs)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// MakeGroupIfNotExists makes the entities of group that do not collide with
// a stored row.
func (s *Service[T]) MakeGroupIfNotExists(ctx context.Context, group []Attributes) ([]*T, error) {
	var out []*T
	for _, attrs := range group {
		e, err := s.MakeIfNotExists(ctx, attrs)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// Create makes an entity from attrs and inserts it.
func (s *Service[T]) Create(ctx context.Context, attrs Attributes) (*T, error) {
	e, err := s.Make(attrs)
	if err != nil {
		return nil, err
	}
	if err := s.mgr.Insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// CreateIfNotExists is Create that returns nil when a stored row already
// holds one of the key or unique values present in attrs.
func (s *Service[T]) CreateIfNotExists(ctx context.Context, attrs Attributes) (*T, error) {
	taken, err := s.conflicts(ctx, attrs)
	if err != nil || taken {
		return nil, err
	}
	return s.Create(ctx, attrs)
}

// CreateGroup inserts one entity per attribute set in a single transaction.
func (s *Service[T]) CreateGroup(ctx context.Context, group []Attributes) ([]*T, error) {
	items, err := s.MakeGroup(group)
	if err != nil {
		return nil, err
	}
	if err := s.mgr.InsertMany(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateGroupIfNotExists creates the entities of group that do not collide
// with a stored row, in order, so later sets see earlier inserts.
func (s *Service[T]) CreateGroupIfNotExists(ctx context.Context, group []Attributes) ([]*T, error) {
	var out []*T
	for _, attrs := range group {
		e, err := s.CreateIfNotExists(ctx, attrs)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- persistence ---

// Insert stores a new entity.
func (s *Service[T]) Insert(ctx context.Context, e *T) error {
	return s.mgr.Insert(ctx, e)
}

// Save inserts or updates e.
func (s *Service[T]) Save(ctx context.Context, e *T) error {
	return s.mgr.Save(ctx, e)
}

// Update fills e from attrs and saves it.
func (s *Service[T]) Update(ctx context.Context, e *T, attrs Attributes) (*T, error) {
	if err := s.mgr.Fill(e, attrs); err != nil {
		return nil, fmt.Errorf("update %s: %w", s.info.TypeName, err)
	}
	if err := s.mgr.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes e, softly when the model has a deleted column.
func (s *Service[T]) Delete(ctx context.Context, e *T) error {
	return s.mgr.Delete(ctx, e, gomodel.WithStrict())
}

// ForceDelete permanently removes e.
func (s *Service[T]) ForceDelete(ctx context.Context, e *T) error {
	return s.mgr.ForceDelete(ctx, e, gomodel.WithStrict())
}

// Restore brings a soft-deleted e back.
func (s *Service[T]) Restore(ctx context.Context, e *T) error {
	return s.mgr.Restore(ctx, e)
}

// Truncate removes every row of the table.
func (s *Service[T]) Truncate(ctx context.Context) error {
	return s.mgr.Truncate(ctx)
}

// conflicts reports whether a stored row holds the key or any unique value
// present in attrs, trashed rows included. Without such values it is false
// and issues no query.
func (s *Service[T]) conflicts(ctx context.Context, attrs Attributes) (bool, error) {
	fields := append([]gomodel.FieldInfo{s.info.Key}, s.uniqueFields()...)
	var match []gomodel.Filter
	for _, fi := range fields {
		v, ok := attrs[fi.Column()]
		if !ok {
			v, ok = attrs[fi.FieldName]
		}
		if !ok || isBlank(v) {
			continue
		}
		fs, err := s.mgr.AttrsFilter(map[string]any{fi.Column(): v})
		if err != nil {
			return false, fmt.Errorf("check %s: %w", s.info.TypeName, err)
		}
		match = append(match, fs...)
	}
	if len(match) == 0 {
		return false, nil
	}
	return s.mgr.Query().WithTrashed().Filter(gomodel.Or(match...)).Exists(ctx)
}

func (s *Service[T]) uniqueFields() []gomodel.FieldInfo {
	cols := s.uniqueKeys()
	out := make([]gomodel.FieldInfo, 0, len(cols))
	for _, col := range cols {
		if fi, ok := s.info.FieldByColumn(col); ok && col != s.info.Key.Column() {
			out = append(out, fi)
		}
	}
	return out
}
