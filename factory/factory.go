// Package factory builds in-memory model instances filled with random
// attribute values, for tests and seeding.
//
// Values come from go-randomdata, picked by column name and Go kind. Key,
// timestamp and optional (pointer) fields are left zero. Unique columns get
// a sequence number offset by a random per-factory base, so instances never
// collide within a factory and rarely across factories or existing rows.
package factory

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/Pallinder/go-randomdata"

	"github.com/CaliLuke/go-modelservice/gomodel"
)

// Definition customizes a freshly generated instance. seq is the 1-based
// number of the instance within its factory.
type Definition[T any] func(seq int, e *T)

// Factory generates instances of a registered model type T.
// It is safe for concurrent use.
type Factory[T any] struct {
	info *gomodel.ModelInfo
	defs []Definition[T]

	// base offsets unique values; a multiple of uniqueStride.
	base int

	mu  sync.Mutex
	seq int
}

// uniqueStride separates the unique ranges of factories. The largest base
// stays within int32.
const uniqueStride = 1000

// New returns a factory for T. Definitions run in order after the random
// fill and before caller-supplied attributes.
func New[T any](defs ...Definition[T]) (*Factory[T], error) {
	info, err := gomodel.InfoFor[T]()
	if err != nil {
		return nil, fmt.Errorf("factory: %w", err)
	}
	mutex.Lock()
	base := randomdata.Number(1, 1_000_000) * uniqueStride
	mutex.Unlock()
	return &Factory[T]{info: info, defs: defs, base: base}, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](defs ...Definition[T]) *Factory[T] {
	f, err := New[T](defs...)
	if err != nil {
		panic(err)
	}
	return f
}

// Make returns one instance. attrs, keyed by column or field name, are
// applied last and win over generated values.
func (f *Factory[T]) Make(attrs map[string]any) (*T, error) {
	seq := f.next()
	e := new(T)
	v := reflect.ValueOf(e).Elem()
	for _, fi := range f.info.Fields {
		if skipField(fi) {
			continue
		}
		if rv, ok := randomValue(fi, f.base+seq); ok {
			v.Field(fi.FieldIndex).Set(rv.Convert(fi.FieldType))
		}
	}
	for _, def := range f.defs {
		def(seq, e)
	}
	if len(attrs) > 0 {
		if err := gomodel.Hydrate(e, attrs); err != nil {
			return nil, fmt.Errorf("factory %s: %w", f.info.TypeName, err)
		}
	}
	return e, nil
}

// MakeMany returns n instances sharing attrs.
func (f *Factory[T]) MakeMany(n int, attrs map[string]any) ([]*T, error) {
	out := make([]*T, 0, n)
	for range n {
		e, err := f.Make(attrs)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *Factory[T]) next() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq
}

func skipField(fi gomodel.FieldInfo) bool {
	t := fi.Tag
	return t.Key || t.Created || t.Updated || t.Deleted || fi.IsPointer || fi.Encoded || fi.Scannable
}

// randomdata shares one unsynchronized source.
var mutex sync.Mutex

// randomValue fills fi; unique columns embed uniq.
func randomValue(fi gomodel.FieldInfo, uniq int) (reflect.Value, bool) {
	mutex.Lock()
	defer mutex.Unlock()

	unique := fi.Tag.Unique
	switch fi.FieldType.Kind() {
	case reflect.String:
		return reflect.ValueOf(randomString(fi.Tag.Name, unique, uniq)), true
	case reflect.Bool:
		return reflect.ValueOf(randomdata.Boolean()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if unique {
			return reflect.ValueOf(int64(uniq)), true
		}
		return reflect.ValueOf(int64(randomdata.Number(1, 100))), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if unique {
			return reflect.ValueOf(uint64(uniq)), true
		}
		return reflect.ValueOf(uint64(randomdata.Number(1, 100))), true
	case reflect.Float32, reflect.Float64:
		return reflect.ValueOf(randomdata.Decimal(0, 100, 2)), true
	case reflect.Struct:
		if fi.FieldType == reflect.TypeFor[time.Time]() {
			hours := time.Duration(randomdata.Number(1, 24*365)) * time.Hour
			return reflect.ValueOf(time.Now().UTC().Add(-hours)), true
		}
	}
	return reflect.Value{}, false
}

func randomString(column string, unique bool, uniq int) string {
	col := strings.ToLower(column)
	switch {
	case strings.Contains(col, "email"):
		if unique {
			return fmt.Sprintf("%s.%d@example.com", strings.ToLower(randomdata.SillyName()), uniq)
		}
		return randomdata.Email()
	case col == "name" || strings.HasSuffix(col, "_name"):
		name := randomdata.FullName(randomdata.RandomGender)
		if unique {
			name = fmt.Sprintf("%s %d", name, uniq)
		}
		return name
	case strings.Contains(col, "slug") || strings.Contains(col, "code"):
		return fmt.Sprintf("%s-%d", strings.ToLower(randomdata.SillyName()), uniq)
	}
	s := randomdata.SillyName()
	if unique {
		s = fmt.Sprintf("%s-%d", s, uniq)
	}
	return s
}
