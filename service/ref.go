package service

import "reflect"

type refKind uint8

const (
	refNone refKind = iota
	refScalar
	refEntity
	refGroup
)

// Ref identifies zero or more entities: a scalar (a primary key or a
// unique-column value), an entity instance, or a nested group of refs.
// The zero Ref references nothing.
type Ref struct {
	kind  refKind
	value any
	group []Ref
}

// ID references an entity by a scalar value. Slices are flattened when the
// ref is normalized.
func ID(v any) Ref {
	return Ref{kind: refScalar, value: v}
}

// IDs references entities by several scalar values.
func IDs[V any](vs ...V) Ref {
	group := make([]Ref, len(vs))
	for i, v := range vs {
		group[i] = ID(v)
	}
	return Ref{kind: refGroup, group: group}
}

// Entity references an entity instance. Its key and unique-column values
// are read from memory; a nil pointer references nothing.
func Entity[T any](e *T) Ref {
	if e == nil {
		return Ref{}
	}
	return Ref{kind: refEntity, value: e}
}

// Entities references several entity instances.
func Entities[T any](es []*T) Ref {
	group := make([]Ref, 0, len(es))
	for _, e := range es {
		group = append(group, Entity(e))
	}
	return Ref{kind: refGroup, group: group}
}

// Refs groups refs.
func Refs(rs ...Ref) Ref {
	return Ref{kind: refGroup, group: rs}
}

// IsZero reports whether r references nothing.
func (r Ref) IsZero() bool {
	return len(Flatten(r)) == 0
}

// IsEntity reports whether r is a single entity reference.
func (r Ref) IsEntity() bool {
	return r.kind == refEntity
}

// Value returns the scalar or entity pointer of a leaf ref, or nil for groups.
func (r Ref) Value() any {
	if r.kind == refGroup {
		return nil
	}
	return r.value
}

// Flatten expands nested groups into leaf refs in first-seen order, dropping
// nil and empty-string scalars and nil entities. Duplicates are kept; they
// are removed once entities are resolved to scalars by Normalize.
func Flatten(refs ...Ref) []Ref {
	var out []Ref
	var walk func([]Ref)
	walk = func(rs []Ref) {
		for _, r := range rs {
			switch r.kind {
			case refGroup:
				walk(r.group)
			case refEntity:
				out = append(out, r)
			case refScalar:
				if !isBlank(r.value) {
					out = append(out, r)
				}
			}
		}
	}
	walk(refs)
	return out
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
