// Package resource maps the conventional resource verbs (index, store, show,
// update, destroy, restore, force destroy) onto an entity service.
package resource

import (
	"context"

	"github.com/CaliLuke/go-modelservice/gomodel"
	"github.com/CaliLuke/go-modelservice/service"
)

// Facade is the part of *service.Service[T] a Resource needs.
type Facade[T any] interface {
	Info() *gomodel.ModelInfo
	All(ctx context.Context) ([]*T, error)
	Create(ctx context.Context, attrs service.Attributes) (*T, error)
	Find(ctx context.Context, refs ...service.Ref) (service.Result[T], error)
	FindTrashed(ctx context.Context, ref service.Ref) (*T, error)
	Update(ctx context.Context, e *T, attrs service.Attributes) (*T, error)
	Delete(ctx context.Context, e *T) error
	ForceDelete(ctx context.Context, e *T) error
	Restore(ctx context.Context, e *T) error
}

var _ Facade[struct{}] = (*service.Service[struct{}])(nil)

// Resource adapts a Facade to resource verbs.
type Resource[T any] struct {
	svc Facade[T]
}

// New wraps svc.
func New[T any](svc Facade[T]) *Resource[T] {
	return &Resource[T]{svc: svc}
}

// Index lists every entity.
func (r *Resource[T]) Index(ctx context.Context) ([]*T, error) {
	return r.svc.All(ctx)
}

// Store creates an entity from attrs.
func (r *Resource[T]) Store(ctx context.Context, attrs service.Attributes) (*T, error) {
	return r.svc.Create(ctx, attrs)
}

// Show returns the referenced entity, or nil when there is none. An entity
// ref is returned as-is without a round trip.
func (r *Resource[T]) Show(ctx context.Context, ref service.Ref) (*T, error) {
	if ref.IsEntity() {
		if e, ok := ref.Value().(*T); ok {
			return e, nil
		}
	}
	res, err := r.svc.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	return res.One(), nil
}

// Update fills the referenced entity from attrs and saves it.
func (r *Resource[T]) Update(ctx context.Context, ref service.Ref, attrs service.Attributes) (*T, error) {
	e, err := r.mustShow(ctx, ref)
	if err != nil {
		return nil, err
	}
	return r.svc.Update(ctx, e, attrs)
}

// Destroy deletes the referenced entity, softly when the model supports it.
func (r *Resource[T]) Destroy(ctx context.Context, ref service.Ref) error {
	e, err := r.mustShow(ctx, ref)
	if err != nil {
		return err
	}
	return r.svc.Delete(ctx, e)
}

// Restore brings back the referenced soft-deleted entity.
func (r *Resource[T]) Restore(ctx context.Context, ref service.Ref) (*T, error) {
	e, err := r.svc.FindTrashed(ctx, ref)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, r.notFound(ref)
	}
	if err := r.svc.Restore(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ForceDestroy permanently deletes the referenced entity.
func (r *Resource[T]) ForceDestroy(ctx context.Context, ref service.Ref) error {
	e, err := r.mustShow(ctx, ref)
	if err != nil {
		return err
	}
	return r.svc.ForceDelete(ctx, e)
}

func (r *Resource[T]) mustShow(ctx context.Context, ref service.Ref) (*T, error) {
	e, err := r.Show(ctx, ref)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, r.notFound(ref)
	}
	return e, nil
}

func (r *Resource[T]) notFound(ref service.Ref) error {
	var keys []any
	for _, leaf := range service.Flatten(ref) {
		keys = append(keys, leaf.Value())
	}
	return &gomodel.NotFoundError{TypeName: r.svc.Info().TypeName, Keys: keys}
}
