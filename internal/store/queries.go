// ABOUTME: SQL statement templates for the session table and their per-dialect rendering
// ABOUTME: The table name is substituted once, when the store is constructed

package store

import (
	"fmt"
	"regexp"
	"strings"
)

// Dialect selects the SQL flavour the statements are rendered in
type Dialect string

const (
	DialectPostgres Dialect = "postgres" // Default; statements are used verbatim
	DialectSQLite   Dialect = "sqlite"   // NOW() becomes CURRENT_TIMESTAMP, no row locks
)

// DefaultTable is the session table used when none is configured
const DefaultTable = "session"

// Statement templates. %s is the single substitution point for the table name.
const (
	addTemplate = "INSERT INTO %s\n" +
		"(uid, meta, data, last_used)\n" +
		"VALUES($1, $2, $3, NOW())"

	uidsTemplate = "SELECT uid\n" +
		"FROM %s\n" +
		"WHERE deleted_at IS NULL"

	setSelectTemplate = "SELECT meta, data\n" +
		"FROM %s\n" +
		"WHERE deleted_at IS NULL AND uid=$1"

	setUpdateTemplate = "UPDATE %s SET\n" +
		"data = $1,\n" +
		"meta = $2\n" +
		"WHERE uid = $3"

	getSelectTemplate = "SELECT meta, data\n" +
		"FROM %s\n" +
		"WHERE uid = $1 AND deleted_at IS NULL"

	removeUpdateTemplate = "UPDATE %s SET\n" +
		"meta = '',\n" +
		"data = '',\n" +
		"deleted_at = NOW()\n" +
		"WHERE uid = $1 AND deleted_at IS NULL"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// queries holds the statements rendered for one table and dialect
type queries struct {
	add             string
	uids            string
	setSelect       string
	setSelectLocked string // used when Set runs inside a transaction
	setUpdate       string
	getSelect       string
	removeUpdate    string
}

// ValidDialect reports whether d is a known dialect
func ValidDialect(d Dialect) bool {
	return d == DialectPostgres || d == DialectSQLite
}

// ValidTableName reports whether name is a plain, optionally schema-qualified, identifier
func ValidTableName(name string) bool {
	return tableNameRe.MatchString(name)
}

func buildQueries(table string, dialect Dialect) (queries, error) {
	if !ValidTableName(table) {
		return queries{}, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	if !ValidDialect(dialect) {
		return queries{}, fmt.Errorf("unknown dialect %q", dialect)
	}

	render := func(tmpl string) string {
		q := fmt.Sprintf(tmpl, table)
		if dialect == DialectSQLite {
			q = strings.ReplaceAll(q, "NOW()", "CURRENT_TIMESTAMP")
		}
		return q
	}

	q := queries{
		add:          render(addTemplate),
		uids:         render(uidsTemplate),
		setSelect:    render(setSelectTemplate),
		setUpdate:    render(setUpdateTemplate),
		getSelect:    render(getSelectTemplate),
		removeUpdate: render(removeUpdateTemplate),
	}

	// SQLite has no row locks; its writers are serialized by the database lock.
	q.setSelectLocked = q.setSelect
	if dialect == DialectPostgres {
		q.setSelectLocked = q.setSelect + "\nFOR UPDATE"
	}

	return q, nil
}
