package service

import (
	"fmt"
	"reflect"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

// MalformedRefError reports an entity reference that cannot yield the value
// a lookup needs. It is returned only by services built WithStrictRefs.
type MalformedRefError struct {
	TypeName string
	Column   string
	Reason   string
}

func (e *MalformedRefError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("malformed %s reference: %s", e.TypeName, e.Reason)
	}
	return fmt.Sprintf("malformed %s reference: %s: %s", e.TypeName, e.Column, e.Reason)
}

// Resolver turns leaf refs into scalars by reading entity fields in memory.
//
// By default a malformed entity (wrong model type, zero key, zero unique
// value) contributes nothing and the lookup proceeds with what remains. In
// strict mode the same conditions produce *MalformedRefError.
type Resolver[T any] struct {
	info       *gomodel.ModelInfo
	uniqueKeys []string
	strict     bool
}

// NewResolver creates a resolver for T's model.
func NewResolver[T any](info *gomodel.ModelInfo, uniqueKeys []string, strict bool) Resolver[T] {
	return Resolver[T]{info: info, uniqueKeys: uniqueKeys, strict: strict}
}

// IDs replaces every entity leaf with its primary key. Scalars pass through.
func (r Resolver[T]) IDs(leaves []Ref) ([]any, error) {
	out := make([]any, 0, len(leaves))
	for _, leaf := range leaves {
		if !leaf.IsEntity() {
			out = append(out, leaf.value)
			continue
		}
		v, err := r.entityValue(leaf, r.info.Key)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// UniqueValues expands every entity leaf into its primary key followed by
// its unique-column values, in unique-key order. Scalars pass through.
func (r Resolver[T]) UniqueValues(leaves []Ref) ([]any, error) {
	out := make([]any, 0, len(leaves)*(1+len(r.uniqueKeys)))
	for _, leaf := range leaves {
		if !leaf.IsEntity() {
			out = append(out, leaf.value)
			continue
		}
		key, err := r.entityValue(leaf, r.info.Key)
		if err != nil {
			return nil, err
		}
		if key != nil {
			out = append(out, key)
		}
		for _, col := range r.uniqueKeys {
			fi, ok := r.info.FieldByColumn(col)
			if !ok {
				continue
			}
			v, err := r.entityValue(leaf, fi)
			if err != nil {
				return nil, err
			}
			if v != nil {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// entityValue reads fi from the entity behind leaf, returning nil when the
// value is absent.
func (r Resolver[T]) entityValue(leaf Ref, fi gomodel.FieldInfo) (any, error) {
	e, ok := leaf.value.(*T)
	if !ok {
		if r.strict {
			return nil, &MalformedRefError{
				TypeName: r.info.TypeName,
				Reason:   fmt.Sprintf("entity of type %T", leaf.value),
			}
		}
		return nil, nil
	}

	field := reflect.ValueOf(e).Elem().Field(fi.FieldIndex)
	if fi.IsPointer && !field.IsNil() {
		field = field.Elem()
	}
	if field.IsZero() {
		if r.strict {
			return nil, &MalformedRefError{TypeName: r.info.TypeName, Column: fi.Tag.Name, Reason: "value is not set"}
		}
		return nil, nil
	}
	return field.Interface(), nil
}
