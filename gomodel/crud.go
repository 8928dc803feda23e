// Package gomodel provides high-level SQL data mapping and CRUD operations.
package gomodel

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/CaliLuke/go-modelservice/ast"
)

// Manager provides high-level, generic CRUD (Create, Read, Update, Delete) operations
// for a registered model type T.
type Manager[T any] struct {
	db   *Database
	info *ModelInfo
	now  func() time.Time
}

// NewManager creates a new Manager for the model type T.
// T must be a struct that has been registered via Register[T]().
func NewManager[T any](db *Database) *Manager[T] {
	info, err := InfoFor[T]()
	if err != nil {
		name := typeOf[T]().Name()
		panic(fmt.Sprintf("gomodel: type %s is not registered; call Register[%s]() first", name, name))
	}
	return &Manager[T]{db: db, info: info, now: time.Now}
}

// WithDatabase returns a copy of the manager bound to db, typically the
// handle passed to a Database.Transaction callback.
func (m *Manager[T]) WithDatabase(db *Database) *Manager[T] {
	cp := *m
	cp.db = db
	return &cp
}

// WithClock returns a copy of the manager that stamps timestamps using now.
func (m *Manager[T]) WithClock(now func() time.Time) *Manager[T] {
	cp := *m
	cp.now = now
	return &cp
}

// Info returns the model metadata.
func (m *Manager[T]) Info() *ModelInfo {
	return m.info
}

// Database returns the database handle.
func (m *Manager[T]) Database() *Database {
	return m.db
}

// KeyOf returns the primary key of instance, or nil when it is zero.
func (m *Manager[T]) KeyOf(instance *T) any {
	if instance == nil {
		return nil
	}
	f := reflect.ValueOf(instance).Elem().Field(m.info.Key.FieldIndex)
	if f.IsZero() {
		return nil
	}
	v, err := bindValue(m.info.Key, f)
	if err != nil {
		return nil
	}
	return v
}

// Fill assigns attribute values to instance. Keys are column or field names;
// unknown keys are ignored.
func (m *Manager[T]) Fill(instance *T, attrs map[string]any) error {
	if instance == nil {
		return fmt.Errorf("fill %s: instance must not be nil", m.info.TypeName)
	}
	return fill(m.info, reflect.ValueOf(instance).Elem(), attrs)
}

// ToMap returns instance's attributes keyed by column. Nil optional fields
// are omitted.
func (m *Manager[T]) ToMap(instance *T) map[string]any {
	if instance == nil {
		return nil
	}
	return toMap(m.info, reflect.ValueOf(instance).Elem())
}

// Trashed reports whether instance is soft-deleted.
func (m *Manager[T]) Trashed(instance *T) bool {
	df, ok := m.info.DeletedField()
	if !ok || instance == nil {
		return false
	}
	return !reflect.ValueOf(instance).Elem().Field(df.FieldIndex).IsNil()
}

// Insert adds a new instance of T to the database.
// A zero key with auto=uuid is generated before the write; with
// auto=increment it is read back from the store.
func (m *Manager[T]) Insert(ctx context.Context, instance *T) error {
	if instance == nil {
		return fmt.Errorf("insert %s: instance must not be nil", m.info.TypeName)
	}
	if err := checkCtx(ctx, "insert", m.info.TypeName); err != nil {
		return err
	}

	v := reflect.ValueOf(instance).Elem()
	keyField := v.Field(m.info.Key.FieldIndex)
	returnKey := false
	if keyField.IsZero() {
		switch m.info.Key.Tag.Auto {
		case AutoUUID:
			if err := assignValue(keyField, m.info.Key, uuid.NewString()); err != nil {
				return fmt.Errorf("insert %s: generate key: %w", m.info.TypeName, err)
			}
		case AutoIncrement:
			returnKey = true
		default:
			return &KeyAttributeError{TypeName: m.info.TypeName, FieldName: m.info.Key.FieldName, Operation: "insert"}
		}
	}

	now := m.now()
	m.stamp(v, now, true)

	cols := make([]string, 0, len(m.info.Fields))
	vals := make([]any, 0, len(m.info.Fields))
	for _, fi := range m.info.Fields {
		if fi.Tag.Key && returnKey {
			continue
		}
		bound, err := bindValue(fi, v.Field(fi.FieldIndex))
		if err != nil {
			return fmt.Errorf("insert %s: %w", m.info.TypeName, err)
		}
		cols = append(cols, fi.Tag.Name)
		vals = append(vals, bound)
	}

	stmt := ast.Insert{Table: m.info.Table, Columns: cols, Rows: [][]any{vals}}
	if !returnKey {
		if _, err := m.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("insert %s: %w", m.info.TypeName, err)
		}
		return nil
	}

	stmt.Returning = []string{m.info.Key.Tag.Name}
	rows, err := m.db.Query(ctx, stmt)
	if err != nil {
		return fmt.Errorf("insert %s: %w", m.info.TypeName, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("insert %s: %w", m.info.TypeName, err)
		}
		return fmt.Errorf("insert %s: no key returned", m.info.TypeName)
	}
	var key any
	if err := rows.Scan(&key); err != nil {
		return fmt.Errorf("insert %s: read key: %w", m.info.TypeName, err)
	}
	if err := assignValue(keyField, m.info.Key, key); err != nil {
		return &HydrationError{TypeName: m.info.TypeName, Field: m.info.Key.FieldName, Cause: err}
	}
	return rows.Err()
}

// InsertMany inserts instances in a single transaction.
func (m *Manager[T]) InsertMany(ctx context.Context, instances []*T) error {
	if len(instances) == 0 {
		return nil
	}
	return m.db.Transaction(ctx, func(tx *Database) error {
		txm := m.WithDatabase(tx)
		for i, inst := range instances {
			if err := txm.Insert(ctx, inst); err != nil {
				return fmt.Errorf("insert_many %s [%d]: %w", m.info.TypeName, i, err)
			}
		}
		return nil
	})
}

// Get retrieves instances of T that match the specified column filters.
// filters is a map where keys are column names and values are the target values.
func (m *Manager[T]) Get(ctx context.Context, filters map[string]any) ([]*T, error) {
	fs, err := m.AttrsFilter(filters)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", m.info.TypeName, err)
	}
	return m.Query().Filter(fs...).All(ctx)
}

// AttrsFilter builds one equality filter per attribute, binding each value
// for its column the way writes do. Keys are column or field names; a nil
// value matches NULL.
func (m *Manager[T]) AttrsFilter(attrs map[string]any) ([]Filter, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filters := make([]Filter, 0, len(keys))
	for _, k := range keys {
		fi, ok := m.info.FieldByColumn(k)
		if !ok {
			if fi, ok = m.info.FieldByName(k); !ok {
				return nil, fmt.Errorf("unknown attribute %q", k)
			}
		}
		if attrs[k] == nil {
			filters = append(filters, IsNull(fi.Tag.Name))
			continue
		}
		bound, err := bindAny(fi, attrs[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		filters = append(filters, Eq(fi.Tag.Name, bound))
	}
	return filters, nil
}

// All retrieves all instances of the model type T from the database.
func (m *Manager[T]) All(ctx context.Context) ([]*T, error) {
	return m.Query().All(ctx)
}

// FindByKey retrieves a single instance by primary key.
// It returns nil if no instance is found with the given key.
func (m *Manager[T]) FindByKey(ctx context.Context, key any) (*T, error) {
	if key == nil {
		return nil, nil
	}
	return m.Query().Filter(Eq(m.info.Key.Tag.Name, key)).First(ctx)
}

// FindByKeys retrieves every instance whose primary key is in keys.
// Result order is unspecified.
func (m *Manager[T]) FindByKeys(ctx context.Context, keys []any) ([]*T, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return m.Query().Filter(In(m.info.Key.Tag.Name, keys)).All(ctx)
}

// Update writes every non-key column of instance, matched by primary key.
// It returns *NotFoundError when no row has the key.
func (m *Manager[T]) Update(ctx context.Context, instance *T) error {
	if instance == nil {
		return fmt.Errorf("update %s: instance must not be nil", m.info.TypeName)
	}
	if err := checkCtx(ctx, "update", m.info.TypeName); err != nil {
		return err
	}
	key := m.KeyOf(instance)
	if key == nil {
		return &KeyAttributeError{TypeName: m.info.TypeName, FieldName: m.info.Key.FieldName, Operation: "update"}
	}

	v := reflect.ValueOf(instance).Elem()
	m.stamp(v, m.now(), false)

	set := make([]ast.Assignment, 0, len(m.info.Fields))
	for _, fi := range m.info.Fields {
		if fi.Tag.Key || fi.Tag.Created {
			continue
		}
		bound, err := bindValue(fi, v.Field(fi.FieldIndex))
		if err != nil {
			return fmt.Errorf("update %s: %w", m.info.TypeName, err)
		}
		set = append(set, ast.Assignment{Column: fi.Tag.Name, Value: bound})
	}
	if len(set) == 0 {
		return nil
	}

	res, err := m.db.Exec(ctx, ast.Update{
		Table: m.info.Table,
		Set:   set,
		Where: ast.Eq(m.info.Key.Tag.Name, key),
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", m.info.TypeName, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{TypeName: m.info.TypeName, Keys: []any{key}}
	}
	return nil
}

// Save inserts instance when its key is zero or unknown to the store and
// updates it otherwise.
func (m *Manager[T]) Save(ctx context.Context, instance *T) error {
	if m.KeyOf(instance) == nil {
		return m.Insert(ctx, instance)
	}
	err := m.Update(ctx, instance)
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return m.Insert(ctx, instance)
	}
	return err
}

// DeleteOption configures delete behavior.
type DeleteOption func(*deleteConfig)

type deleteConfig struct {
	strict bool
}

// WithStrict enables strict mode: delete returns an error if the instance doesn't exist.
func WithStrict() DeleteOption {
	return func(c *deleteConfig) { c.strict = true }
}

// Delete removes instance. Models with a deleted column are soft-deleted:
// the timestamp is set in the store and on instance.
func (m *Manager[T]) Delete(ctx context.Context, instance *T, opts ...DeleteOption) error {
	if !m.info.SoftDeletes() {
		return m.ForceDelete(ctx, instance, opts...)
	}
	key, err := m.requireKey(ctx, instance, "delete")
	if err != nil {
		return err
	}
	df, _ := m.info.DeletedField()
	now := m.now()
	res, err := m.db.Exec(ctx, ast.Update{
		Table: m.info.Table,
		Set:   []ast.Assignment{{Column: df.Tag.Name, Value: now}},
		Where: ast.AllOf(ast.Eq(m.info.Key.Tag.Name, key), ast.Null(df.Tag.Name)),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", m.info.TypeName, err)
	}
	if err := m.checkAffected(res, key, opts); err != nil {
		return err
	}
	reflect.ValueOf(instance).Elem().Field(df.FieldIndex).Set(reflect.ValueOf(&now))
	return nil
}

// ForceDelete permanently removes instance, bypassing soft deletes.
func (m *Manager[T]) ForceDelete(ctx context.Context, instance *T, opts ...DeleteOption) error {
	key, err := m.requireKey(ctx, instance, "delete")
	if err != nil {
		return err
	}
	res, err := m.db.Exec(ctx, ast.Delete{Table: m.info.Table, Where: ast.Eq(m.info.Key.Tag.Name, key)})
	if err != nil {
		return fmt.Errorf("delete %s: %w", m.info.TypeName, err)
	}
	return m.checkAffected(res, key, opts)
}

// Restore clears the soft-delete timestamp of instance.
func (m *Manager[T]) Restore(ctx context.Context, instance *T) error {
	df, ok := m.info.DeletedField()
	if !ok {
		return fmt.Errorf("restore %s: model does not soft delete", m.info.TypeName)
	}
	key, err := m.requireKey(ctx, instance, "restore")
	if err != nil {
		return err
	}
	set := []ast.Assignment{{Column: df.Tag.Name, Value: nil}}
	now := m.now()
	if uf, ok := m.info.UpdatedField(); ok {
		set = append(set, ast.Assignment{Column: uf.Tag.Name, Value: now})
	}
	res, err := m.db.Exec(ctx, ast.Update{Table: m.info.Table, Set: set, Where: ast.Eq(m.info.Key.Tag.Name, key)})
	if err != nil {
		return fmt.Errorf("restore %s: %w", m.info.TypeName, err)
	}
	if err := m.checkAffected(res, key, []DeleteOption{WithStrict()}); err != nil {
		return err
	}
	v := reflect.ValueOf(instance).Elem()
	v.Field(df.FieldIndex).Set(reflect.Zero(df.FieldType))
	if uf, ok := m.info.UpdatedField(); ok {
		setTimestamp(v.Field(uf.FieldIndex), uf, now)
	}
	return nil
}

// Truncate removes every row of the table, trashed rows included.
func (m *Manager[T]) Truncate(ctx context.Context) error {
	if err := checkCtx(ctx, "truncate", m.info.TypeName); err != nil {
		return err
	}
	if _, err := m.db.Exec(ctx, ast.Truncate{Table: m.info.Table}); err != nil {
		return fmt.Errorf("truncate %s: %w", m.info.TypeName, err)
	}
	return nil
}

// --- internal helpers ---

func (m *Manager[T]) requireKey(ctx context.Context, instance *T, op string) (any, error) {
	if instance == nil {
		return nil, fmt.Errorf("%s %s: instance must not be nil", op, m.info.TypeName)
	}
	if err := checkCtx(ctx, op, m.info.TypeName); err != nil {
		return nil, err
	}
	key := m.KeyOf(instance)
	if key == nil {
		return nil, &KeyAttributeError{TypeName: m.info.TypeName, FieldName: m.info.Key.FieldName, Operation: op}
	}
	return key, nil
}

func (m *Manager[T]) checkAffected(res interface{ RowsAffected() (int64, error) }, key any, opts []DeleteOption) error {
	cfg := deleteConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if !cfg.strict {
		return nil
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{TypeName: m.info.TypeName, Keys: []any{key}}
	}
	return nil
}

// stamp fills timestamp columns. On insert, zero created/updated values are
// set; on update, the updated column is always refreshed.
func (m *Manager[T]) stamp(v reflect.Value, now time.Time, insert bool) {
	if cf, ok := m.info.CreatedField(); ok && insert {
		if f := v.Field(cf.FieldIndex); f.IsZero() {
			setTimestamp(f, cf, now)
		}
	}
	if uf, ok := m.info.UpdatedField(); ok {
		f := v.Field(uf.FieldIndex)
		if !insert || f.IsZero() {
			setTimestamp(f, uf, now)
		}
	}
}

func setTimestamp(f reflect.Value, fi FieldInfo, now time.Time) {
	if fi.IsPointer {
		t := now
		f.Set(reflect.ValueOf(&t))
		return
	}
	f.Set(reflect.ValueOf(now))
}

// bindAny converts a caller-supplied value for column fi to a driver argument.
func bindAny(fi FieldInfo, val any) (any, error) {
	holder := reflect.New(fi.FieldType).Elem()
	if err := setGoValue(holder, fi, val); err != nil {
		return nil, err
	}
	return bindValue(fi, holder)
}

// assignments converts an attribute map to sorted SET entries, skipping the key.
func (m *Manager[T]) assignments(updates map[string]any) ([]ast.Assignment, error) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := make([]ast.Assignment, 0, len(keys))
	for _, k := range keys {
		fi, ok := m.info.FieldByColumn(k)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", k)
		}
		if fi.Tag.Key {
			continue
		}
		bound, err := bindAny(fi, updates[k])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", k, err)
		}
		set = append(set, ast.Assignment{Column: k, Value: bound})
	}
	return set, nil
}
