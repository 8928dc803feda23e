// Package driver opens SQL stores for gomodel.
//
// Two backends are supported through database/sql: sqlite via the pure-Go
// modernc.org/sqlite driver and Postgres via pgx. Open compiles for the
// matching dialect, classifies unique-constraint violations into
// *gomodel.UniqueViolationError, and attaches optional observers for
// query logging and prometheus metrics.
//
//	cfg, err := driver.LoadConfig("APP", ".env")
//	db, err := driver.Open(ctx, cfg, driver.WithMetrics(prometheus.DefaultRegisterer))
//	defer db.Close()
package driver
