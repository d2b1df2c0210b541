// ABOUTME: Opens the configured session backend and returns a gateway handle
// ABOUTME: Supports lib/pq, pgxpool and modernc.org/sqlite; classifies Postgres errors by SQLSTATE

package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/2389/coven-sessions/internal/config"
	"github.com/2389/coven-sessions/internal/store"
)

var (
	// ErrNoConnString is returned when the database section has no connection string
	ErrNoConnString = errors.New("no connection string configured")

	// ErrUnknownDriver is returned for a driver other than postgres, pgx or sqlite
	ErrUnknownDriver = errors.New("unknown database driver")
)

// gateway is the set of methods every backend in this package provides
type gateway interface {
	store.Gateway
	store.Transactor
	Ping(ctx context.Context) error
	Close() error
}

// Handle is an open backend: the gateway to hand to the session store and
// the SQL dialect it speaks.
type Handle struct {
	Gateway store.Gateway
	Dialect store.Dialect
	Driver  string

	gw gateway
}

// Ping checks the backend is reachable
func (h *Handle) Ping(ctx context.Context) error {
	return h.gw.Ping(ctx)
}

// Close releases the backend's connections
func (h *Handle) Close() error {
	return h.gw.Close()
}

// Open connects to the backend described by cfg and verifies it with a ping
// bounded by cfg.ConnectTimeout.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Handle, error) {
	logger := slog.Default().With("component", "backend", "driver", cfg.Driver)

	if cfg.ConnString == "" {
		return nil, ErrNoConnString
	}

	dialect := store.Dialect(cfg.Dialect)
	if dialect == "" {
		dialect = store.Dialect(config.DialectFor(cfg.Driver))
	}

	var (
		gw  gateway
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		gw, err = openSQL("postgres", cfg)
	case config.DriverPgx:
		gw, err = openPool(ctx, cfg)
	case config.DriverSQLite:
		gw, err = openSQLite(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := gw.Ping(pingCtx); err != nil {
		gw.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	logger.Info("session backend opened", "dialect", dialect, "checkout", cfg.Checkout)
	return &Handle{
		Gateway: gw,
		Dialect: dialect,
		Driver:  cfg.Driver,
		gw:      gw,
	}, nil
}

func openSQL(driverName string, cfg config.DatabaseConfig) (gateway, error) {
	db, err := sql.Open(driverName, cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	return wrapSQL(db, cfg.Checkout)
}

func openSQLite(cfg config.DatabaseConfig) (gateway, error) {
	path := sqlitePath(cfg.ConnString)
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(cfg.ConnString))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Writers queue on the database lock; sqliteDSN makes transactions take it at BEGIN.
	maxConns := 1
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	db.SetMaxOpenConns(maxConns)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	return wrapSQL(db, cfg.Checkout)
}

func wrapSQL(db *sql.DB, checkout bool) (gateway, error) {
	if checkout {
		return NewCheckout(db)
	}
	return NewDB(db)
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (gateway, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if cfg.MaxConns > math.MaxInt32 {
		return nil, fmt.Errorf("max_conns %d exceeds %d", cfg.MaxConns, math.MaxInt32)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	return NewPool(pool)
}

// sqlitePath strips the file: prefix and query string from a SQLite DSN
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// sqliteDSN adds a busy timeout so concurrent writers wait on the database
// lock, and makes transactions BEGIN IMMEDIATE so Set holds the write lock
// before it reads. A WAL read transaction cannot be upgraded once another
// connection has committed.
func sqliteDSN(dsn string) string {
	params := []struct{ name, value string }{
		{"busy_timeout", "_pragma=busy_timeout(5000)"},
		{"_txlock", "_txlock=immediate"},
	}
	for _, p := range params {
		if strings.Contains(dsn, p.name) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p.value
	}
	return dsn
}

// ErrorCode returns the SQLSTATE of a Postgres error from either driver, or
// "" when err did not come from Postgres.
func ErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsUndefinedTable reports whether err says the session table does not exist
func IsUndefinedTable(err error) bool {
	return ErrorCode(err) == "42P01"
}
