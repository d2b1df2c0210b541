// ABOUTME: Session store interfaces, the backend gateway contract and shared error values
// ABOUTME: Defines Document, Row, Gateway, Transactor and the Sessions interface

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no live session matches the uid
var ErrNotFound = errors.New("uid not found")

// ErrNoGateway is returned when a store is constructed without a backend gateway
var ErrNoGateway = errors.New("no backend gateway when creating session store")

// ErrInvalidTable is returned when the configured table name is not a plain SQL identifier
var ErrInvalidTable = errors.New("invalid session table name")

// Document is a JSON object stored in the meta or data column of a session row.
type Document map[string]any

// Row is a single result row keyed by column name.
type Row map[string]any

// Text returns the column value as text. Drivers hand back text columns as
// string or []byte; structured values (for example a jsonb column decoded by
// pgx) are re-encoded as JSON.
func (r Row) Text(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Gateway executes a parametrized statement against the relational backend.
// Every statement, including INSERT and UPDATE, goes through Query; the rows
// are fully read before Query returns. Implementations that check out a
// connection must release it before returning, on every path.
type Gateway interface {
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
}

// Transactor is implemented by gateways that can run several statements in
// one database transaction. fn's error is returned unchanged after rollback.
type Transactor interface {
	InTx(ctx context.Context, fn func(Gateway) error) error
}

// Sessions defines the uid-keyed session lifecycle
type Sessions interface {
	// Add inserts a new session row and echoes the given documents back.
	Add(ctx context.Context, uid string, meta, data Document) (Document, Document, error)

	// UIDs lists the uids of all live sessions in backend order.
	UIDs(ctx context.Context) ([]string, error)

	// Set shallow-merges the patches into the stored meta and data documents.
	Set(ctx context.Context, uid string, metaPatch, dataPatch Document) error

	// Get returns the stored meta and data documents of a live session.
	Get(ctx context.Context, uid string) (Document, Document, error)

	// Remove soft-deletes the live session. Removing an unknown uid is not an error.
	Remove(ctx context.Context, uid string) error
}
