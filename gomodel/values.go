package gomodel

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/CaliLuke/go-modelservice/ast"
)

// timeLayouts are tried in order when parsing stored timestamps.
var timeLayouts = []string{
	ast.TimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// bindValue converts a struct field to a driver argument.
func bindValue(fi FieldInfo, v reflect.Value) (any, error) {
	if fi.IsPointer {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if fi.Encoded {
		switch v.Kind() {
		case reflect.Map, reflect.Slice:
			if v.IsNil() {
				return nil, nil
			}
		}
		b, err := msgpack.Marshal(v.Interface())
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", fi.Tag.Name, err)
		}
		return b, nil
	}
	if fi.Scannable {
		return v.Interface(), nil
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("column %s: value %d overflows int64", fi.Tag.Name, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}
	return v.Interface(), nil
}

// assignValue stores a raw driver value (or a loosely typed Go value) into a
// struct field, converting it to the field's type. Nil clears the field.
func assignValue(field reflect.Value, fi FieldInfo, raw any) error {
	if raw == nil {
		field.Set(reflect.Zero(fi.FieldType))
		return nil
	}

	target := reflect.New(fi.ElemType).Elem()
	switch {
	case fi.Scannable:
		scanner := target.Addr().Interface().(interface{ Scan(any) error })
		if err := scanner.Scan(raw); err != nil {
			return err
		}

	case fi.Encoded:
		var b []byte
		switch r := raw.(type) {
		case []byte:
			b = r
		case string:
			b = []byte(r)
		default:
			return fmt.Errorf("expected encoded bytes, got %T", raw)
		}
		if err := msgpack.Unmarshal(b, target.Addr().Interface()); err != nil {
			return fmt.Errorf("decode: %w", err)
		}

	default:
		if err := assignScalar(target, fi.Kind, raw); err != nil {
			return err
		}
	}

	if fi.IsPointer {
		field.Set(target.Addr())
	} else {
		field.Set(target)
	}
	return nil
}

func assignScalar(target reflect.Value, kind ast.ColumnKind, raw any) error {
	switch kind {
	case ast.KindText:
		switch r := raw.(type) {
		case string:
			target.SetString(r)
		case []byte:
			target.SetString(string(r))
		default:
			target.SetString(fmt.Sprint(raw))
		}

	case ast.KindInteger:
		i, ok := toInt64(raw)
		if !ok {
			return fmt.Errorf("cannot coerce %T to integer", raw)
		}
		switch target.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if i < 0 {
				return fmt.Errorf("cannot store %d in %s", i, target.Type())
			}
			target.SetUint(uint64(i))
		default:
			target.SetInt(i)
		}

	case ast.KindReal:
		f, ok := toFloat64(raw)
		if !ok {
			return fmt.Errorf("cannot coerce %T to float", raw)
		}
		target.SetFloat(f)

	case ast.KindBool:
		b, ok := toBool(raw)
		if !ok {
			return fmt.Errorf("cannot coerce %T to bool", raw)
		}
		target.SetBool(b)

	case ast.KindTime:
		t, err := toTime(raw)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(t))

	case ast.KindBlob:
		switch r := raw.(type) {
		case []byte:
			target.SetBytes(append([]byte(nil), r...))
		case string:
			target.SetBytes([]byte(r))
		default:
			return fmt.Errorf("cannot coerce %T to bytes", raw)
		}
	}
	return nil
}

// Coerce converts a scalar to the column's domain, reporting false when the
// value cannot belong to the column (for example "abc" against an integer key).
func (f FieldInfo) Coerce(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch f.Kind {
	case ast.KindInteger:
		return toInt64(v)
	case ast.KindReal:
		return toFloat64(v)
	case ast.KindBool:
		return toBool(v)
	case ast.KindTime:
		t, err := toTime(v)
		return t, err == nil
	case ast.KindBlob:
		if f.Encoded {
			return nil, false
		}
		b, ok := v.([]byte)
		return b, ok
	default:
		return toText(v)
	}
}

func toText(v any) (any, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case fmt.Stringer:
		return x.String(), true
	case bool:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return nil, false
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return i, err == nil
	case []byte:
		i, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		return i, err == nil
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	case reflect.String:
		return toInt64(rv.String())
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f, err == nil
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(x)
		return b, err == nil
	case []byte:
		b, err := strconv.ParseBool(string(x))
		return b, err == nil
	}
	if i, ok := toInt64(v); ok && (i == 0 || i == 1) {
		return i == 1, true
	}
	return false, false
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *x, nil
	case []byte:
		return parseTime(string(x))
	case string:
		return parseTime(x)
	}
	return time.Time{}, fmt.Errorf("cannot coerce %T to time.Time", v)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time string: %q", s)
}
