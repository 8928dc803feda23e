// Package gomodel provides mechanisms for hydrating Go structs from query results.
package gomodel

import (
	"database/sql"
	"fmt"
	"reflect"
)

// Hydrate populates the fields of a target struct pointer with data from a map
// of column names to values. The struct type must be registered.
// Unknown keys are ignored; Go field names are accepted as well as columns.
func Hydrate(target any, data map[string]any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer to struct")
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must point to a struct, got %s", v.Kind())
	}

	info, ok := LookupType(v.Type())
	if !ok {
		return &NotRegisteredError{TypeName: v.Type().Name()}
	}
	return fill(info, v, data)
}

// HydrateNew is a convenience function that creates a new instance of type T,
// hydrates it with the provided data, and returns a pointer to it.
func HydrateNew[T any](data map[string]any) (*T, error) {
	result := new(T)
	if err := Hydrate(result, data); err != nil {
		return nil, err
	}
	return result, nil
}

// FromMap creates a new model instance from a map keyed by column name.
// This is the inverse of ToMap.
func FromMap[T any](data map[string]any) (*T, error) {
	return HydrateNew[T](data)
}

// ToMap converts a registered model instance to a map keyed by column name.
// Nil optional fields are omitted.
func ToMap[T any](instance *T) (map[string]any, error) {
	info, err := InfoFor[T]()
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, fmt.Errorf("to map %s: instance must not be nil", info.TypeName)
	}
	return toMap(info, reflect.ValueOf(instance).Elem()), nil
}

func toMap(info *ModelInfo, v reflect.Value) map[string]any {
	result := make(map[string]any, len(info.Fields))
	for _, fi := range info.Fields {
		field := v.Field(fi.FieldIndex)
		if fi.IsPointer {
			if field.IsNil() {
				continue
			}
			result[fi.Tag.Name] = field.Elem().Interface()
		} else {
			result[fi.Tag.Name] = field.Interface()
		}
	}
	return result
}

func fill(info *ModelInfo, v reflect.Value, data map[string]any) error {
	for key, val := range data {
		fi, ok := info.FieldByColumn(key)
		if !ok {
			if fi, ok = info.FieldByName(key); !ok {
				continue
			}
		}
		if err := setGoValue(v.Field(fi.FieldIndex), fi, val); err != nil {
			return &HydrationError{TypeName: info.TypeName, Field: fi.FieldName, Cause: err}
		}
	}
	return nil
}

// setGoValue assigns a caller-supplied value, preferring a direct assignment
// and falling back to driver-style conversion.
func setGoValue(field reflect.Value, fi FieldInfo, val any) error {
	if val == nil {
		field.Set(reflect.Zero(fi.FieldType))
		return nil
	}
	rv := reflect.ValueOf(val)
	if rv.Type().AssignableTo(fi.FieldType) {
		field.Set(rv)
		return nil
	}
	if fi.IsPointer && rv.Type().AssignableTo(fi.ElemType) {
		ptr := reflect.New(fi.ElemType)
		ptr.Elem().Set(rv)
		field.Set(ptr)
		return nil
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			field.Set(reflect.Zero(fi.FieldType))
			return nil
		}
		return setGoValue(field, fi, rv.Elem().Interface())
	}
	return assignValue(field, fi, val)
}

// scanRows reads every row into a new instance of T, matching result columns
// to fields by name. Columns without a field are ignored.
func scanRows[T any](info *ModelInfo, rows *sql.Rows) ([]*T, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	fields := make([]*FieldInfo, len(cols))
	for i, col := range cols {
		if fi, ok := info.FieldByColumn(col); ok {
			fields[i] = &fi
		}
	}

	var results []*T
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		instance := new(T)
		v := reflect.ValueOf(instance).Elem()
		for i, fi := range fields {
			if fi == nil {
				continue
			}
			if err := assignValue(v.Field(fi.FieldIndex), *fi, raw[i]); err != nil {
				return nil, &HydrationError{TypeName: info.TypeName, Field: fi.FieldName, Cause: err}
			}
		}
		results = append(results, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
