package service

import (
	"database/sql/driver"
	"math"
	"reflect"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

// Normalize flattens values into a batch of distinct, non-empty scalars in
// first-seen order. Nested []any and slices are expanded (byte slices and
// arrays are scalars), driver.Valuer and pointers are unwrapped, and nil and
// "" are dropped. Integers of different widths compare equal, as do named
// string types and their underlying strings. Normalize performs no I/O and
// is idempotent.
func Normalize(values []any) []any {
	out := make([]any, 0, len(values))
	seen := make(map[any]struct{}, len(values))

	var walk func(v any)
	walk = func(v any) {
		v = unwrap(v)
		if v == nil {
			return
		}
		if s, ok := v.(string); ok && s == "" {
			return
		}
		if nested, ok := v.([]any); ok {
			for _, x := range nested {
				walk(x)
			}
			return
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := range rv.Len() {
				walk(rv.Index(i).Interface())
			}
			return
		}
		if !rv.Type().Comparable() {
			out = append(out, v)
			return
		}
		k := dedupKey(rv)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}

	for _, v := range values {
		walk(v)
	}
	return out
}

// unwrap dereferences pointers and resolves driver.Valuer until a plain value
// remains. A typed nil becomes nil.
func unwrap(v any) any {
	for range 8 {
		if v == nil {
			return nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return nil
			}
			if valuer, ok := v.(driver.Valuer); ok {
				dv, err := valuer.Value()
				if err != nil {
					return v
				}
				v = dv
				continue
			}
			v = rv.Elem().Interface()
			continue
		}
		if valuer, ok := v.(driver.Valuer); ok {
			dv, err := valuer.Value()
			if err != nil {
				return v
			}
			if reflect.TypeOf(dv) == reflect.TypeOf(v) {
				return dv
			}
			v = dv
			continue
		}
		return v
	}
	return v
}

// dedupAs drops values that equal an earlier one after coercion to fi's
// type, keeping the caller's original form. Values that do not coerce are
// kept as they are.
func dedupAs(fi gomodel.FieldInfo, values []any) []any {
	out := make([]any, 0, len(values))
	seen := make(map[any]struct{}, len(values))
	for _, v := range values {
		if cv, ok := fi.Coerce(v); ok {
			if rv := reflect.ValueOf(cv); rv.Type().Comparable() {
				k := dedupKey(rv)
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
			}
		}
		out = append(out, v)
	}
	return out
}

type canonical struct {
	kind reflect.Kind
	val  any
}

func dedupKey(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.String:
		return canonical{reflect.String, rv.String()}
	case reflect.Bool:
		return canonical{reflect.Bool, rv.Bool()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return canonical{reflect.Int64, rv.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return canonical{reflect.Int64, int64(u)}
		}
		return canonical{reflect.Uint64, rv.Uint()}
	case reflect.Float32, reflect.Float64:
		return canonical{reflect.Float64, rv.Float()}
	}
	return rv.Interface()
}
