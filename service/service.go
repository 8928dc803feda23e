// Package service provides a generic entity access facade over gomodel.
//
// A Service[T] accepts identifiers in whatever shape the caller holds them
// (scalars, entities, nested groups) through Ref, normalizes them into a
// deduplicated batch, and answers lookups by primary key or by any column of
// the model's unique-key set in a single round trip.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/CaliLuke/go-modelservice/factory"
	"github.com/CaliLuke/go-modelservice/gomodel"
)

// keySet is the lazily resolved unique-key set, shared by copies of a service.
type keySet struct {
	once sync.Once
	cols []string
}

// Service exposes lookup, existence, upsert and mutation operations for the
// registered model T. It holds no mutable state after construction and is
// safe for concurrent use.
type Service[T any] struct {
	db       *gomodel.Database
	mgr      *gomodel.Manager[T]
	info     *gomodel.ModelInfo
	keys     *keySet
	override []string
	fixtures *factory.Factory[T]
	seeder   Seeder
	log      *slog.Logger
	strict   bool
}

// New creates a service for T over db. T must be registered with gomodel.
func New[T any](db *gomodel.Database, opts ...Option) (*Service[T], error) {
	info, err := gomodel.InfoFor[T]()
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var override []string
	if o.uniqueKeys != nil {
		keyed, err := info.WithUniqueColumns(o.uniqueKeys)
		if err != nil {
			return nil, fmt.Errorf("service: %w", err)
		}
		override = keyed.UniqueColumns()
	}

	s := &Service[T]{
		db:       db,
		mgr:      gomodel.NewManager[T](db),
		info:     info,
		keys:     &keySet{},
		override: override,
		seeder:   o.seeder,
		log:      o.logger,
		strict:   o.strict,
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}

	switch f := o.factory.(type) {
	case nil:
		if s.fixtures, err = factory.New[T](); err != nil {
			return nil, fmt.Errorf("service %s: %w", info.TypeName, err)
		}
	case *factory.Factory[T]:
		s.fixtures = f
	default:
		return nil, fmt.Errorf("service %s: factory %T is for another model", info.TypeName, f)
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](db *gomodel.Database, opts ...Option) *Service[T] {
	s, err := New[T](db, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// WithDatabase returns a copy of the service bound to db, typically a
// transaction handle.
func (s *Service[T]) WithDatabase(db *gomodel.Database) *Service[T] {
	cp := *s
	cp.db = db
	cp.mgr = s.mgr.WithDatabase(db)
	return &cp
}

// Transaction runs fn with a service bound to a transaction. A read followed
// by a write inside fn, such as UpdateOrCreate, is then atomic.
func (s *Service[T]) Transaction(ctx context.Context, fn func(tx *Service[T]) error) error {
	return s.db.Transaction(ctx, func(tx *gomodel.Database) error {
		return fn(s.WithDatabase(tx))
	})
}

// Info returns the model metadata.
func (s *Service[T]) Info() *gomodel.ModelInfo { return s.info }

// TableName returns the model's table.
func (s *Service[T]) TableName() string { return s.info.Table }

// Manager returns the underlying CRUD manager.
func (s *Service[T]) Manager() *gomodel.Manager[T] { return s.mgr }

// Database returns the database handle.
func (s *Service[T]) Database() *gomodel.Database { return s.db }

// Query starts a query over the model's table.
func (s *Service[T]) Query() *gomodel.Query[T] { return s.mgr.Query() }

// UniqueKeys returns the unique-key set: the WithUniqueKeys columns when
// given, else the model's UniqueKeyer columns, else its unique-tagged
// columns. It is resolved once.
func (s *Service[T]) UniqueKeys() []string {
	return slices.Clone(s.uniqueKeys())
}

func (s *Service[T]) uniqueKeys() []string {
	s.keys.once.Do(func() {
		if s.override != nil {
			s.keys.cols = s.override
			return
		}
		s.keys.cols = s.info.UniqueColumns()
	})
	return s.keys.cols
}

func (s *Service[T]) resolver() Resolver[T] {
	return NewResolver[T](s.info, s.uniqueKeys(), s.strict)
}

// ids resolves refs to a normalized batch of primary-key candidates. Values
// equal once coerced to the key's type collapse to the first one seen.
func (s *Service[T]) ids(refs []Ref) ([]any, error) {
	ids, err := s.resolver().IDs(Flatten(refs...))
	if err != nil {
		return nil, err
	}
	return dedupAs(s.info.Key, Normalize(ids)), nil
}

// uniqueValues resolves refs to a normalized batch of key and unique-column
// candidates.
func (s *Service[T]) uniqueValues(refs []Ref) ([]any, error) {
	vals, err := s.resolver().UniqueValues(Flatten(refs...))
	if err != nil {
		return nil, err
	}
	return Normalize(vals), nil
}

func (s *Service[T]) notFound(keys []any) error {
	return &gomodel.NotFoundError{TypeName: s.info.TypeName, Keys: keys}
}
