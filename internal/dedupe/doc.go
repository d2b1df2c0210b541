// Package dedupe remembers which session a client's idempotency key created,
// so a retried create within the TTL returns the same uid instead of adding a row.
package dedupe
