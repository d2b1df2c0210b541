// Package config handles configuration loading for coven-sessions.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Files ending in .toml are parsed as TOML; anything else as YAML.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from COVEN_SESSIONS_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/coven/sessions.yaml
//  4. ~/.config/coven/sessions.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  conn_string: "${DATABASE_URL}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "127.0.0.1:8090"
//
// Database:
//
//	database:
//	  driver: "pgx"                 # postgres, pgx, sqlite
//	  conn_string: "${DATABASE_URL}"
//	  table: "session"              # default
//	  checkout: false               # database/sql drivers: one connection per statement
//	  max_conns: 10
//	  connect_timeout: "10s"
//
// Logging:
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json, pretty
//
// The same settings in TOML:
//
//	[database]
//	driver = "sqlite"
//	conn_string = "/var/lib/coven/sessions.db"
//
// # Validation
//
// Load() validates:
//
//   - database.driver is one of postgres, pgx, sqlite
//   - database.conn_string is present
//   - database.table is a plain (optionally schema-qualified) identifier
//   - duration format validity
//   - logging level and format values
package config
