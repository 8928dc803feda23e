package driver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/CaliLuke/go-modelservice/ast"
	"github.com/CaliLuke/go-modelservice/gomodel"
)

// sqlOpen is swapped by tests.
var sqlOpen = sql.Open

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	observers []gomodel.QueryObserver
	logger    *slog.Logger
	registry  prometheus.Registerer
}

// WithObserver attaches a query observer to the returned database.
func WithObserver(obs gomodel.QueryObserver) Option {
	return func(o *openOptions) { o.observers = append(o.observers, obs) }
}

// WithLogger sets the logger used for connection messages and, when
// Config.LogQueries is true, for per-query debug logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *openOptions) { o.logger = l }
}

// WithMetrics registers query metrics with reg and records every round trip.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *openOptions) { o.registry = reg }
}

// Open connects to the store described by cfg and verifies the connection.
// Closing the returned database closes the pool.
func Open(ctx context.Context, cfg Config, opts ...Option) (*gomodel.Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := openOptions{logger: discardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	name, _ := sqlDriverName(cfg.Driver)
	dialect, err := ast.DialectByName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}

	sqlDB, err := sqlOpen(name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	maxConns := cfg.MaxOpenConns
	if dialect == ast.SQLite && isMemoryDSN(cfg.DSN) {
		// Every pooled connection to an in-memory database is a separate database.
		maxConns = 1
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}

	dbOpts := []gomodel.DatabaseOption{
		gomodel.WithErrorClassifier(ClassifyError),
		gomodel.WithCloser(sqlDB),
	}
	if o.registry != nil {
		m, err := NewMetrics(o.registry)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		dbOpts = append(dbOpts, gomodel.WithObserver(m))
	}
	if cfg.LogQueries {
		dbOpts = append(dbOpts, gomodel.WithObserver(NewQueryLogger(o.logger)))
	}
	for _, obs := range o.observers {
		dbOpts = append(dbOpts, gomodel.WithObserver(obs))
	}

	o.logger.InfoContext(ctx, "database opened", "driver", dialect.Name(), "max_open_conns", maxConns)
	return gomodel.NewDatabase(sqlDB, dialect, dbOpts...), nil
}

// sqlDriverName maps a configured driver to its database/sql name.
func sqlDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
