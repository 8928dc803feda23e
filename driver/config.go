package driver

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys read by LoadConfig, relative to the prefix.
const (
	EnvDriver       = "DB_DRIVER"
	EnvDSN          = "DB_DSN"
	EnvMaxOpenConns = "DB_MAX_OPEN_CONNS"
	EnvLogQueries   = "DB_LOG_QUERIES"
)

// Defaults applied when a key is unset.
const (
	DefaultDriver = "sqlite"
	DefaultDSN    = ":memory:"
)

var (
	// ErrUnknownDriver is returned for a driver name Open cannot serve.
	ErrUnknownDriver = errors.New("driver: unknown driver")
	// ErrMissingDSN is returned when Config.DSN is empty.
	ErrMissingDSN = errors.New("driver: missing DSN")
)

// Config describes how to reach the store.
type Config struct {
	// Driver is "sqlite" or "postgres" ("pgx" and "postgresql" are aliases).
	Driver string
	// DSN is the driver-specific data source name.
	DSN string
	// MaxOpenConns caps the pool; zero leaves it unlimited. In-memory sqlite
	// databases are always capped at one connection.
	MaxOpenConns int
	// LogQueries makes Open attach a debug-level query logger. It writes to
	// the WithLogger logger and is discarded when none is given.
	LogQueries bool
}

// LoadConfig reads Config from the environment. Keys are prefixed with
// prefix and an underscore when prefix is non-empty (APP_DB_DSN). The
// given .env files are loaded first; they never override variables that
// are already set.
func LoadConfig(prefix string, files ...string) (Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Config{}, fmt.Errorf("loading env files: %w", err)
		}
	}

	cfg := Config{
		Driver: envOrDefault(prefix, EnvDriver, DefaultDriver),
		DSN:    envOrDefault(prefix, EnvDSN, DefaultDSN),
	}
	if raw := envOrDefault(prefix, EnvMaxOpenConns, ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("parsing %s: invalid connection count %q", envKey(prefix, EnvMaxOpenConns), raw)
		}
		cfg.MaxOpenConns = n
	}
	if raw := envOrDefault(prefix, EnvLogQueries, ""); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", envKey(prefix, EnvLogQueries), err)
		}
		cfg.LogQueries = b
	}
	return cfg, nil
}

// Validate reports configuration faults before any connection is attempted.
func (c Config) Validate() error {
	if _, err := sqlDriverName(c.Driver); err != nil {
		return err
	}
	if strings.TrimSpace(c.DSN) == "" {
		return ErrMissingDSN
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("driver: negative MaxOpenConns %d", c.MaxOpenConns)
	}
	return nil
}

func envKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

func envOrDefault(prefix, key, fallback string) string {
	if v, ok := os.LookupEnv(envKey(prefix, key)); ok {
		return v
	}
	return fallback
}
