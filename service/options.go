package service

import (
	"log/slog"

	"github.com/CaliLuke/go-modelservice/factory"
)

// Option configures a Service.
type Option func(*options)

type options struct {
	uniqueKeys []string
	factory    any
	seeder     Seeder
	logger     *slog.Logger
	strict     bool
}

// WithUniqueKeys overrides the model's unique-key set. The columns must
// exist on the model.
func WithUniqueKeys(columns ...string) Option {
	return func(o *options) { o.uniqueKeys = append([]string{}, columns...) }
}

// WithFactory sets the fixture factory used by Make-style generation. The
// factory must be built for the service's model type.
func WithFactory[T any](f *factory.Factory[T]) Option {
	return func(o *options) { o.factory = f }
}

// WithSeeder sets the seeder run by Seed.
func WithSeeder(s Seeder) Option {
	return func(o *options) { o.seeder = s }
}

// WithLogger sets the service logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStrictRefs makes malformed entity references an error instead of
// silently dropping them from lookups.
func WithStrictRefs() Option {
	return func(o *options) { o.strict = true }
}

// LookupOption tunes the *OrFail and Has lookups.
type LookupOption func(*lookupConfig)

type lookupConfig struct {
	all bool
}

// RequireAll requires every requested identifier to resolve.
func RequireAll() LookupOption {
	return func(c *lookupConfig) { c.all = true }
}

// RequireAny requires at least one requested identifier to resolve.
func RequireAny() LookupOption {
	return func(c *lookupConfig) { c.all = false }
}

func requireAll(def bool, opts []LookupOption) bool {
	c := lookupConfig{all: def}
	for _, o := range opts {
		o(&c)
	}
	return c.all
}

// GenerateOption tunes Generate and Factory. Options apply in order, so a
// later option overrides an earlier one of the same kind.
type GenerateOption func(*generateConfig)

type generateConfig struct {
	count   int
	attrs   Attributes
	persist bool
}

// Count generates n entities as a collection. Zero or a negative n yields a
// single entity.
func Count(n int) GenerateOption {
	return func(c *generateConfig) { c.count = max(n, 0) }
}

// With sets attribute overrides applied to every generated entity.
func With(attrs Attributes) GenerateOption {
	return func(c *generateConfig) { c.attrs = attrs }
}

// Persist chooses between saving generated entities (the default) and
// returning them unsaved.
func Persist(persist bool) GenerateOption {
	return func(c *generateConfig) { c.persist = persist }
}

// MakeOnly is Persist(false).
func MakeOnly() GenerateOption {
	return Persist(false)
}

func newGenerateConfig(opts []GenerateOption) generateConfig {
	c := generateConfig{persist: true}
	for _, o := range opts {
		o(&c)
	}
	return c
}
