// Package store provides the session store: uid-keyed meta/data documents
// kept in a relational table with soft deletes.
//
// # Architecture
//
// The store never talks to a database driver directly. It renders six fixed
// SQL statements once, at construction, and runs them through a Gateway:
//
//   - Gateway: executes one parametrized statement, returns rows or an error
//   - Transactor: optional; runs several statements in one transaction
//
// SessionStore implements the Sessions interface on top of any Gateway.
// Implementations backed by database/sql and pgxpool live in internal/backend.
//
// # Data Model
//
// One row per session:
//
//	CREATE TABLE session (
//	    uid        TEXT NOT NULL,
//	    meta       TEXT,
//	    data       TEXT,
//	    last_used  TIMESTAMP,
//	    deleted_at TIMESTAMP
//	);
//
// A row is live while deleted_at IS NULL. Remove clears meta and data and
// stamps deleted_at; rows are never deleted physically. The table is not
// created or migrated by this package.
//
// # Merge On Write
//
// Set reads the live row, decodes meta and data with ParseOrDefault, applies
// the patches with Merge (shallow: patch keys win, other keys are kept) and
// writes both documents back. When the gateway is a Transactor the read and
// the write share a transaction and, on Postgres, the read takes a row lock
// (SELECT ... FOR UPDATE).
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: no live session for the uid (Set, Get)
//   - ErrNoGateway: store constructed without a gateway
//   - ErrInvalidTable: table name is not a plain identifier
//
// Backend errors are returned unchanged. Malformed stored documents are not
// errors; they decode as empty documents and are logged at warn level.
//
// # Testing
//
// Use NewMockStore() for unit tests of code that depends on Sessions:
//
//	sessions := store.NewMockStore()
//
// Use a SessionStore over backend.NewDB with SQLite for integration tests.
package store
