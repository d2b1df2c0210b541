// ABOUTME: database/sql gateways for the session store: shared client and per-statement connection checkout
// ABOUTME: Used with lib/pq for Postgres and modernc.org/sqlite for SQLite

package backend

import (
	"context"
	"database/sql"
	"errors"

	"github.com/2389/coven-sessions/internal/store"
)

// ErrNoClient is returned when a gateway is constructed without a database handle
var ErrNoClient = errors.New("no database client when creating session gateway")

// queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// beginner is satisfied by *sql.DB and *sql.Conn
type beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// DB is a gateway that runs every statement on a shared *sql.DB
type DB struct {
	db *sql.DB
}

var (
	_ store.Gateway    = (*DB)(nil)
	_ store.Transactor = (*DB)(nil)
)

// NewDB wraps an open database handle
func NewDB(db *sql.DB) (*DB, error) {
	if db == nil {
		return nil, ErrNoClient
	}
	return &DB{db: db}, nil
}

// Query executes the statement and returns all rows
func (d *DB) Query(ctx context.Context, query string, args ...any) ([]store.Row, error) {
	return queryRows(ctx, d.db, query, args...)
}

// InTx runs fn inside a transaction on the shared handle
func (d *DB) InTx(ctx context.Context, fn func(store.Gateway) error) error {
	return inTx(ctx, d.db, fn)
}

// Ping checks the database is reachable
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the underlying handle
func (d *DB) Close() error {
	return d.db.Close()
}

// Checkout is a gateway that takes a dedicated connection from the *sql.DB
// pool for each statement and returns it before Query returns.
type Checkout struct {
	db *sql.DB
}

var (
	_ store.Gateway    = (*Checkout)(nil)
	_ store.Transactor = (*Checkout)(nil)
)

// NewCheckout wraps an open database handle
func NewCheckout(db *sql.DB) (*Checkout, error) {
	if db == nil {
		return nil, ErrNoClient
	}
	return &Checkout{db: db}, nil
}

// Query checks out a connection, executes the statement on it and releases it.
// The connection is released on success, on execution error, and is never
// held when acquisition fails.
func (c *Checkout) Query(ctx context.Context, query string, args ...any) (rows []store.Row, err error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return queryRows(ctx, conn, query, args...)
}

// InTx checks out one connection and runs fn in a transaction on it
func (c *Checkout) InTx(ctx context.Context, fn func(store.Gateway) error) (err error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return inTx(ctx, conn, fn)
}

// Ping checks the database is reachable
func (c *Checkout) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the underlying handle
func (c *Checkout) Close() error {
	return c.db.Close()
}

// txGateway runs statements inside an open transaction
type txGateway struct {
	tx *sql.Tx
}

func (g txGateway) Query(ctx context.Context, query string, args ...any) ([]store.Row, error) {
	return queryRows(ctx, g.tx, query, args...)
}

// inTx begins a transaction, runs fn and commits. fn's error is returned
// unchanged after rollback.
func inTx(ctx context.Context, b beginner, fn func(store.Gateway) error) error {
	tx, err := b.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// No-op once committed
	defer func() { _ = tx.Rollback() }()

	if err := fn(txGateway{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// queryRows executes a statement and reads every row into column-keyed maps.
// Statements without a result set (INSERT, UPDATE) return no rows.
func queryRows(ctx context.Context, q queryer, query string, args ...any) ([]store.Row, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []store.Row
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		row := make(store.Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
