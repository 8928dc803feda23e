package service

import "github.com/CaliLuke/go-modelservice/gomodel"

// Result holds the outcome of a lookup that returns a single entity or a
// collection depending on how many identifiers were requested.
type Result[T any] struct {
	items []*T
	many  bool
}

func single[T any](e *T) Result[T] {
	if e == nil {
		return Result[T]{}
	}
	return Result[T]{items: []*T{e}}
}

func collection[T any](items []*T) Result[T] {
	return Result[T]{items: items, many: true}
}

// One returns the first entity, or nil.
func (r Result[T]) One() *T {
	if len(r.items) == 0 {
		return nil
	}
	return r.items[0]
}

// All returns every entity.
func (r Result[T]) All() []*T {
	return r.items
}

// IsMany reports whether the lookup asked for a collection.
func (r Result[T]) IsMany() bool {
	return r.many
}

// Len returns the number of entities.
func (r Result[T]) Len() int {
	return len(r.items)
}

// Empty reports whether nothing was found.
func (r Result[T]) Empty() bool {
	return len(r.items) == 0
}

// Attributes are model values keyed by column or field name.
type Attributes map[string]any

// AttributesOf returns e's stored attributes. Nil optional fields are omitted.
func AttributesOf[T any](e *T) (Attributes, error) {
	m, err := gomodel.ToMap(e)
	if err != nil {
		return nil, err
	}
	return Attributes(m), nil
}

func merge(maps ...Attributes) map[string]any {
	out := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
