// Package backend provides the relational gateways the session store runs on.
//
// # Gateways
//
//   - DB: database/sql, every statement on the shared *sql.DB
//   - Checkout: database/sql, one dedicated *sql.Conn per statement,
//     released before Query returns on every path
//   - Pool: pgxpool, Acquire/Release per statement
//
// All three implement store.Gateway and store.Transactor, so Set's
// read-modify-write runs in a transaction.
//
// # Drivers
//
//	postgres  lib/pq through database/sql
//	pgx       jackc/pgx/v5 pgxpool
//	sqlite    modernc.org/sqlite through database/sql (WAL, busy timeout)
//
// Open builds the right gateway from config.DatabaseConfig and pings it.
//
// # Errors
//
// Driver errors pass through unchanged. ErrorCode extracts the SQLSTATE from
// either Postgres driver, e.g. "42P01" when the session table is missing.
package backend
