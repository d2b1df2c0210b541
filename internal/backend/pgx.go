// ABOUTME: pgxpool gateway for the session store
// ABOUTME: Acquires a pooled connection per statement and releases it on every exit path

package backend

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2389/coven-sessions/internal/store"
)

// Pool is a gateway over a pgx connection pool
type Pool struct {
	pool *pgxpool.Pool
}

var (
	_ store.Gateway    = (*Pool)(nil)
	_ store.Transactor = (*Pool)(nil)
)

// NewPool wraps an open pgx pool
func NewPool(pool *pgxpool.Pool) (*Pool, error) {
	if pool == nil {
		return nil, ErrNoClient
	}
	return &Pool{pool: pool}, nil
}

// Query acquires a connection, runs the statement and releases the connection
// before returning, whether the statement succeeded or not.
func (p *Pool) Query(ctx context.Context, query string, args ...any) ([]store.Row, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

// InTx runs fn in a transaction on one pooled connection.
// pgx.BeginFunc rolls back when fn fails and returns fn's error.
func (p *Pool) InTx(ctx context.Context, fn func(store.Gateway) error) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(pgxTx{tx: tx})
	})
}

// Ping checks the database is reachable
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes every connection in the pool
func (p *Pool) Close() error {
	p.pool.Close()
	return nil
}

// pgxTx runs statements inside an open pgx transaction
type pgxTx struct {
	tx pgx.Tx
}

func (g pgxTx) Query(ctx context.Context, query string, args ...any) ([]store.Row, error) {
	rows, err := g.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

// collectRows drains pgx rows into column-keyed maps
func collectRows(rows pgx.Rows) ([]store.Row, error) {
	defer rows.Close()

	var result []store.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		fields := rows.FieldDescriptions()
		row := make(store.Row, len(fields))
		for i, f := range fields {
			row[f.Name] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
