package service

import (
	"context"
	"fmt"
	"log/slog"
)

// FactoryBuilder generates fixture entities through the service's factory.
type FactoryBuilder[T any] struct {
	svc *Service[T]
	cfg generateConfig
}

// Factory returns a builder configured by opts. Persist options are ignored:
// the caller picks Make or Create.
func (s *Service[T]) Factory(opts ...GenerateOption) *FactoryBuilder[T] {
	return &FactoryBuilder[T]{svc: s, cfg: newGenerateConfig(opts)}
}

// Make generates unsaved entities. Without a count it yields one entity,
// with Count(n) a collection of n.
func (b *FactoryBuilder[T]) Make() (Result[T], error) {
	f := b.svc.fixtures
	if b.cfg.count == 0 {
		e, err := f.Make(b.cfg.attrs)
		if err != nil {
			return Result[T]{}, err
		}
		return single(e), nil
	}
	items, err := f.MakeMany(b.cfg.count, b.cfg.attrs)
	if err != nil {
		return Result[T]{}, err
	}
	return collection(items), nil
}

// Create generates entities and inserts them in one transaction.
func (b *FactoryBuilder[T]) Create(ctx context.Context) (Result[T], error) {
	r, err := b.Make()
	if err != nil {
		return Result[T]{}, err
	}
	if err := b.svc.mgr.InsertMany(ctx, r.items); err != nil {
		return Result[T]{}, err
	}
	return r, nil
}

// Generate makes fixture entities and, unless MakeOnly or Persist(false) is
// given, stores them. Options apply in order and a later one wins.
func (s *Service[T]) Generate(ctx context.Context, opts ...GenerateOption) (Result[T], error) {
	cfg := newGenerateConfig(opts)
	b := &FactoryBuilder[T]{svc: s, cfg: cfg}
	if !cfg.persist {
		return b.Make()
	}
	return b.Create(ctx)
}

// Seed runs the configured seeder.
func (s *Service[T]) Seed(ctx context.Context) error {
	if s.seeder == nil {
		return ErrNoSeeder
	}
	if err := s.seeder.Run(ctx); err != nil {
		return fmt.Errorf("seed %s: %w", s.info.TypeName, err)
	}
	s.log.InfoContext(ctx, "seeded", slog.String("model", s.info.TypeName))
	return nil
}
