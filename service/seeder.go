package service

import (
	"context"
	"errors"
)

// ErrNoSeeder is returned by Seed when the service has no seeder.
var ErrNoSeeder = errors.New("service: no seeder configured")

// Seeder populates a table with baseline data.
type Seeder interface {
	Run(ctx context.Context) error
}

// SeederFunc adapts a function to Seeder.
type SeederFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f SeederFunc) Run(ctx context.Context) error { return f(ctx) }
