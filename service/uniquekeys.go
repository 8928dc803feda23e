package service

import (
	"bytes"
	"time"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

// MatchFilter matches rows whose primary key or any unique column equals one
// of values:
//
//	pk IN (values) OR col1 IN (values) OR ...
//
// Each column only receives the values that coerce to its type, so a mixed
// batch of numeric keys and email addresses never binds a string to an
// integer column. With no usable values the filter matches nothing.
func MatchFilter(info *gomodel.ModelInfo, uniqueKeys []string, values []any) gomodel.Filter {
	var alternatives []gomodel.Filter
	for _, fi := range keyColumns(info, uniqueKeys) {
		if cv := coerceAll(fi, values); len(cv) > 0 {
			alternatives = append(alternatives, gomodel.In(fi.Tag.Name, cv))
		}
	}
	return gomodel.Or(alternatives...)
}

// ExclusionFilter is the complement of MatchFilter: it keeps rows that match
// none of values on any key column.
//
//	pk NOT IN (values) AND (col1 IS NULL OR col1 NOT IN (values)) AND ...
//
// The NULL guard applies to nullable columns, where NOT IN alone would drop
// rows with no value. With no usable values the filter matches every row.
func ExclusionFilter(info *gomodel.ModelInfo, uniqueKeys []string, values []any) gomodel.Filter {
	var conditions []gomodel.Filter
	for _, fi := range keyColumns(info, uniqueKeys) {
		cv := coerceAll(fi, values)
		if len(cv) == 0 {
			continue
		}
		cond := gomodel.NotIn(fi.Tag.Name, cv)
		if !fi.Tag.Key && fi.Nullable() {
			cond = gomodel.Or(gomodel.IsNull(fi.Tag.Name), cond)
		}
		conditions = append(conditions, cond)
	}
	return gomodel.And(conditions...)
}

// KeyFilter matches rows whose primary key is one of ids.
func KeyFilter(info *gomodel.ModelInfo, ids []any) gomodel.Filter {
	return gomodel.In(info.Key.Tag.Name, coerceAll(info.Key, ids))
}

// keyColumns returns the primary key followed by the unique columns that
// exist on the model.
func keyColumns(info *gomodel.ModelInfo, uniqueKeys []string) []gomodel.FieldInfo {
	cols := make([]gomodel.FieldInfo, 0, 1+len(uniqueKeys))
	cols = append(cols, info.Key)
	for _, name := range uniqueKeys {
		if fi, ok := info.FieldByColumn(name); ok && !fi.Tag.Key {
			cols = append(cols, fi)
		}
	}
	return cols
}

func coerceAll(fi gomodel.FieldInfo, values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if cv, ok := fi.Coerce(v); ok {
			out = append(out, cv)
		}
	}
	return Normalize(out)
}

// distinctMatch reports whether every value can be paired with a record of
// its own, where a value matches a record holding it in any of cols. It
// searches augmenting paths over the value/record graph.
func distinctMatch(cols []gomodel.FieldInfo, values []any, records []map[string]any) bool {
	candidates := make([][]int, len(values))
	for i, v := range values {
		for j, rec := range records {
			if recordHolds(cols, rec, v) {
				candidates[i] = append(candidates[i], j)
			}
		}
		if len(candidates[i]) == 0 {
			return false
		}
	}

	owner := make([]int, len(records))
	for j := range owner {
		owner[j] = -1
	}
	var assign func(i int, visited []bool) bool
	assign = func(i int, visited []bool) bool {
		for _, j := range candidates[i] {
			if visited[j] {
				continue
			}
			visited[j] = true
			if owner[j] < 0 || assign(owner[j], visited) {
				owner[j] = i
				return true
			}
		}
		return false
	}
	for i := range values {
		if !assign(i, make([]bool, len(records))) {
			return false
		}
	}
	return true
}

func recordHolds(cols []gomodel.FieldInfo, rec map[string]any, v any) bool {
	for _, fi := range cols {
		want, ok := fi.Coerce(v)
		if !ok {
			continue
		}
		if got, ok := fi.Coerce(unwrap(rec[fi.Tag.Name])); ok && sameValue(want, got) {
			return true
		}
	}
	return false
}

func sameValue(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	}
	return a == b
}
