package service

import (
	"context"
	"fmt"
	"reflect"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

// All returns every live entity.
func (s *Service[T]) All(ctx context.Context) ([]*T, error) {
	return s.mgr.All(ctx)
}

// Random returns one entity chosen at random, or nil for an empty table.
func (s *Service[T]) Random(ctx context.Context) (*T, error) {
	return s.mgr.Query().InRandomOrder().First(ctx)
}

// Find looks entities up by primary key. One resolved identifier yields a
// single result, several yield a collection. When refs resolve to nothing,
// Find returns an empty result without querying.
func (s *Service[T]) Find(ctx context.Context, refs ...Ref) (Result[T], error) {
	ids, err := s.ids(refs)
	if err != nil || len(ids) == 0 {
		return Result[T]{}, err
	}
	if len(ids) == 1 {
		e, err := s.findKey(ctx, ids[0])
		if err != nil {
			return Result[T]{}, err
		}
		return single(e), nil
	}
	items, err := s.findKeys(ctx, ids)
	if err != nil {
		return Result[T]{}, err
	}
	return collection(items), nil
}

// FindMany looks entities up by primary key and always returns a collection.
func (s *Service[T]) FindMany(ctx context.Context, refs ...Ref) ([]*T, error) {
	ids, err := s.ids(refs)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return s.findKeys(ctx, ids)
}

// FindOrFail is Find that returns *gomodel.NotFoundError when the lookup is
// incomplete. By default every identifier must resolve; RequireAny accepts
// any match.
func (s *Service[T]) FindOrFail(ctx context.Context, ref Ref, opts ...LookupOption) (Result[T], error) {
	ids, err := s.ids([]Ref{ref})
	if err != nil {
		return Result[T]{}, err
	}
	if len(ids) > 1 {
		items, err := s.findManyOrFail(ctx, ids, requireAll(true, opts))
		if err != nil {
			return Result[T]{}, err
		}
		return collection(items), nil
	}
	if len(ids) == 0 {
		return Result[T]{}, s.notFound(nil)
	}
	e, err := s.findKey(ctx, ids[0])
	if err != nil {
		return Result[T]{}, err
	}
	if e == nil {
		return Result[T]{}, s.notFound(ids)
	}
	return single(e), nil
}

// FindManyOrFail is FindMany with FindOrFail's completeness check.
func (s *Service[T]) FindManyOrFail(ctx context.Context, ref Ref, opts ...LookupOption) ([]*T, error) {
	ids, err := s.ids([]Ref{ref})
	if err != nil {
		return nil, err
	}
	return s.findManyOrFail(ctx, ids, requireAll(true, opts))
}

// FindOrNew returns the entity with the first identifier of ref, or a new
// unsaved zero entity.
func (s *Service[T]) FindOrNew(ctx context.Context, ref Ref) (*T, error) {
	return s.FindOr(ctx, ref, func() (*T, error) { return new(T), nil })
}

// FindOr returns the entity with the first identifier of ref, or the result
// of fallback when there is none.
func (s *Service[T]) FindOr(ctx context.Context, ref Ref, fallback func() (*T, error)) (*T, error) {
	ids, err := s.ids([]Ref{ref})
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		e, err := s.findKey(ctx, ids[0])
		if err != nil || e != nil {
			return e, err
		}
	}
	return fallback()
}

// FindTrashed returns the soft-deleted entity with the first identifier of
// ref, or nil.
func (s *Service[T]) FindTrashed(ctx context.Context, ref Ref) (*T, error) {
	ids, err := s.ids([]Ref{ref})
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	key, ok := s.info.Key.Coerce(ids[0])
	if !ok {
		return nil, nil
	}
	return s.mgr.Query().OnlyTrashed().Filter(gomodel.Eq(s.info.Key.Tag.Name, key)).First(ctx)
}

// Latest returns the most recently created entity.
func (s *Service[T]) Latest(ctx context.Context) (*T, error) {
	return s.byCreated(ctx, "latest", true)
}

// Oldest returns the earliest created entity.
func (s *Service[T]) Oldest(ctx context.Context) (*T, error) {
	return s.byCreated(ctx, "oldest", false)
}

func (s *Service[T]) byCreated(ctx context.Context, op string, desc bool) (*T, error) {
	cf, ok := s.info.CreatedField()
	if !ok {
		return nil, fmt.Errorf("%s %s: model has no created column", op, s.info.TypeName)
	}
	q := s.mgr.Query()
	if desc {
		q.OrderDesc(cf.Tag.Name)
	} else {
		q.OrderAsc(cf.Tag.Name)
	}
	return q.First(ctx)
}

// --- unique-key lookups ---

// WhereKey returns the entities whose primary key is referenced by refs.
// An empty batch returns nothing without querying.
func (s *Service[T]) WhereKey(ctx context.Context, refs ...Ref) ([]*T, error) {
	return s.FindMany(ctx, refs...)
}

// WhereKeyNot returns the entities whose primary key is not referenced by
// refs. An empty batch returns every entity.
func (s *Service[T]) WhereKeyNot(ctx context.Context, refs ...Ref) ([]*T, error) {
	ids, err := s.ids(refs)
	if err != nil {
		return nil, err
	}
	return s.mgr.Query().Filter(gomodel.NotIn(s.info.Key.Tag.Name, coerceAll(s.info.Key, ids))).All(ctx)
}

// WhereUniqueKey returns the entities matching refs on the primary key or
// any unique column, in one query. An empty batch returns nothing without
// querying.
func (s *Service[T]) WhereUniqueKey(ctx context.Context, refs ...Ref) ([]*T, error) {
	vals, err := s.uniqueValues(refs)
	if err != nil || len(vals) == 0 {
		return nil, err
	}
	return s.mgr.Query().Filter(MatchFilter(s.info, s.uniqueKeys(), vals)).All(ctx)
}

// WhereUniqueKeyNot returns the entities matching none of refs on any key
// column. An empty batch returns every entity.
func (s *Service[T]) WhereUniqueKeyNot(ctx context.Context, refs ...Ref) ([]*T, error) {
	vals, err := s.uniqueValues(refs)
	if err != nil {
		return nil, err
	}
	return s.mgr.Query().Filter(ExclusionFilter(s.info, s.uniqueKeys(), vals)).All(ctx)
}

// FirstWhereUniqueKey returns the first entity WhereUniqueKey would return.
func (s *Service[T]) FirstWhereUniqueKey(ctx context.Context, refs ...Ref) (*T, error) {
	vals, err := s.uniqueValues(refs)
	if err != nil || len(vals) == 0 {
		return nil, err
	}
	return s.mgr.Query().Filter(MatchFilter(s.info, s.uniqueKeys(), vals)).First(ctx)
}

// --- predicates ---

// Where returns the entities matching every filter.
func (s *Service[T]) Where(ctx context.Context, filters ...gomodel.Filter) ([]*T, error) {
	return s.mgr.Query().Filter(filters...).All(ctx)
}

// WhereAttrs returns the entities whose columns equal attrs.
func (s *Service[T]) WhereAttrs(ctx context.Context, attrs Attributes) ([]*T, error) {
	fs, err := s.mgr.AttrsFilter(attrs)
	if err != nil {
		return nil, fmt.Errorf("where %s: %w", s.info.TypeName, err)
	}
	return s.Where(ctx, fs...)
}

// FirstWhere returns the first entity matching every filter, or nil.
func (s *Service[T]) FirstWhere(ctx context.Context, filters ...gomodel.Filter) (*T, error) {
	return s.mgr.Query().Filter(filters...).First(ctx)
}

// FirstWhereAttrs returns the first entity whose columns equal attrs, or nil.
func (s *Service[T]) FirstWhereAttrs(ctx context.Context, attrs Attributes) (*T, error) {
	fs, err := s.mgr.AttrsFilter(attrs)
	if err != nil {
		return nil, fmt.Errorf("where %s: %w", s.info.TypeName, err)
	}
	return s.FirstWhere(ctx, fs...)
}

// WhereNot returns the entities matching none of filters. Each filter is
// negated on its own: NOT a AND NOT b.
func (s *Service[T]) WhereNot(ctx context.Context, filters ...gomodel.Filter) ([]*T, error) {
	negated := make([]gomodel.Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			negated = append(negated, gomodel.Not(f))
		}
	}
	return s.Where(ctx, negated...)
}

// WhereNotAttrs returns the entities differing from every pair of attrs.
// The map is decomposed into one negated equality per pair rather than a
// single negated conjunction.
func (s *Service[T]) WhereNotAttrs(ctx context.Context, attrs Attributes) ([]*T, error) {
	fs, err := s.mgr.AttrsFilter(attrs)
	if err != nil {
		return nil, fmt.Errorf("where not %s: %w", s.info.TypeName, err)
	}
	return s.WhereNot(ctx, fs...)
}

// Cond builds a comparison on column. When value is an entity of T (or an
// entity Ref), its own column value is compared instead.
func (s *Service[T]) Cond(column, op string, value any) gomodel.Filter {
	if r, ok := value.(Ref); ok && r.IsEntity() {
		value = r.value
	}
	if e, ok := value.(*T); ok {
		value = s.mgr.ToMap(e)[column]
	}
	return gomodel.Where(column, op, value)
}

// --- existence ---

// HasOne reports whether any of refs matches a row on the primary key or a
// unique column. It issues at most one query.
func (s *Service[T]) HasOne(ctx context.Context, refs ...Ref) (bool, error) {
	vals, err := s.uniqueValues(refs)
	if err != nil || len(vals) == 0 {
		return false, err
	}
	return s.mgr.Query().Filter(MatchFilter(s.info, s.uniqueKeys(), vals)).Exists(ctx)
}

// HasAll reports whether every identifier of refs resolves to its own row.
// An entity counts once through its key, and scalars may name a row by key
// or by any unique column. The matching rows are read in one query and each
// requested value must be paired with a distinct row, so two values naming
// the same row, or one value matching two rows, cannot hide a missing one.
// An empty batch is vacuously present.
func (s *Service[T]) HasAll(ctx context.Context, refs ...Ref) (bool, error) {
	vals, err := s.ids(refs)
	if err != nil {
		return false, err
	}
	if len(vals) == 0 {
		return true, nil
	}
	rows, err := s.mgr.Query().Filter(MatchFilter(s.info, s.uniqueKeys(), vals)).All(ctx)
	if err != nil {
		return false, err
	}
	if len(rows) < len(vals) {
		return false, nil
	}
	records := make([]map[string]any, len(rows))
	for i, e := range rows {
		records[i] = s.mgr.ToMap(e)
	}
	return distinctMatch(keyColumns(s.info, s.uniqueKeys()), vals, records), nil
}

// Has is HasOne, or HasAll with RequireAll.
func (s *Service[T]) Has(ctx context.Context, ref Ref, opts ...LookupOption) (bool, error) {
	if requireAll(false, opts) {
		return s.HasAll(ctx, ref)
	}
	return s.HasOne(ctx, ref)
}

// HasWhere reports whether any entity matches every filter.
func (s *Service[T]) HasWhere(ctx context.Context, filters ...gomodel.Filter) (bool, error) {
	return s.mgr.Query().Filter(filters...).Exists(ctx)
}

// --- helpers ---

func (s *Service[T]) findKey(ctx context.Context, id any) (*T, error) {
	key, ok := s.info.Key.Coerce(id)
	if !ok {
		return nil, nil
	}
	return s.mgr.FindByKey(ctx, key)
}

func (s *Service[T]) findKeys(ctx context.Context, ids []any) ([]*T, error) {
	keys := coerceAll(s.info.Key, ids)
	if len(keys) == 0 {
		return nil, nil
	}
	return s.mgr.FindByKeys(ctx, keys)
}

func (s *Service[T]) findManyOrFail(ctx context.Context, ids []any, all bool) ([]*T, error) {
	if len(ids) == 0 {
		return nil, s.notFound(nil)
	}
	items, err := s.findKeys(ctx, ids)
	if err != nil {
		return nil, err
	}
	if !all {
		if len(items) == 0 {
			return nil, s.notFound(ids)
		}
		return items, nil
	}
	if missing := s.missingKeys(ids, items); len(missing) > 0 {
		return nil, s.notFound(missing)
	}
	return items, nil
}

// missingKeys returns the requested ids with no entity in found.
func (s *Service[T]) missingKeys(ids []any, found []*T) []any {
	have := make(map[any]struct{}, len(found))
	for _, e := range found {
		if k, ok := s.info.Key.Coerce(s.mgr.KeyOf(e)); ok {
			have[dedupKey(reflect.ValueOf(k))] = struct{}{}
		}
	}
	var missing []any
	for _, id := range ids {
		k, ok := s.info.Key.Coerce(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		if _, hit := have[dedupKey(reflect.ValueOf(k))]; !hit {
			missing = append(missing, id)
		}
	}
	return missing
}
