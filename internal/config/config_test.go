// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and validation

package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes content to name inside a temp dir and returns the path
func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "sessions.yaml", `
server:
  http_addr: "127.0.0.1:8090"

database:
  driver: "pgx"
  conn_string: "postgres://localhost/sessions"
  table: "auth.session"
  max_conns: 8
  connect_timeout: "3s"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:8090" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:8090")
	}
	if cfg.Database.Driver != DriverPgx {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverPgx)
	}
	if cfg.Database.ConnString != "postgres://localhost/sessions" {
		t.Errorf("Database.ConnString = %q", cfg.Database.ConnString)
	}
	if cfg.Database.Table != "auth.session" {
		t.Errorf("Database.Table = %q, want %q", cfg.Database.Table, "auth.session")
	}
	if cfg.Database.Dialect != "postgres" {
		t.Errorf("Database.Dialect = %q, want postgres", cfg.Database.Dialect)
	}
	if cfg.Database.MaxConns != 8 {
		t.Errorf("Database.MaxConns = %d, want 8", cfg.Database.MaxConns)
	}
	if cfg.Database.ConnectTimeout != 3*time.Second {
		t.Errorf("Database.ConnectTimeout = %v, want %v", cfg.Database.ConnectTimeout, 3*time.Second)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "sessions.toml", `
[server]
http_addr = ":8090"

[database]
driver = "sqlite"
conn_string = "/tmp/sessions.db"
checkout = true

[logging]
format = "pretty"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
	if !cfg.Database.Checkout {
		t.Error("Database.Checkout = false, want true")
	}
	if cfg.Database.Dialect != "sqlite" {
		t.Errorf("Database.Dialect = %q, want sqlite", cfg.Database.Dialect)
	}
	if cfg.Logging.Format != "pretty" {
		t.Errorf("Logging.Format = %q, want pretty", cfg.Logging.Format)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "sessions.yaml", `
database:
  driver: "postgres"
  conn_string: "postgres://localhost/sessions"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Table != DefaultTable {
		t.Errorf("Database.Table = %q, want %q", cfg.Database.Table, DefaultTable)
	}
	if cfg.Database.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("Database.ConnectTimeout = %v, want %v", cfg.Database.ConnectTimeout, DefaultConnectTimeout)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, DefaultLogLevel)
	}
	if cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, DefaultLogFormat)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_SESSIONS_DSN", "postgres://env-host/sessions")
	t.Setenv("TEST_SESSIONS_TABLE", "web_session")

	path := writeConfig(t, "sessions.yaml", `
database:
  driver: "postgres"
  conn_string: "${TEST_SESSIONS_DSN}"
  table: "${TEST_SESSIONS_TABLE}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.ConnString != "postgres://env-host/sessions" {
		t.Errorf("Database.ConnString = %q, want expanded value", cfg.Database.ConnString)
	}
	if cfg.Database.Table != "web_session" {
		t.Errorf("Database.Table = %q, want %q", cfg.Database.Table, "web_session")
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	os.Unsetenv("TEST_SESSIONS_UNSET_DSN")

	path := writeConfig(t, "sessions.yaml", `
database:
  driver: "postgres"
  conn_string: "${TEST_SESSIONS_UNSET_DSN}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail when the connection string expands to nothing")
	}
	if !strings.Contains(err.Error(), "database.conn_string is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "sessions.yaml", "database: [unclosed")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "sessions.toml", "[database\ndriver = ")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for invalid TOML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "sessions.yaml", `
database:
  driver: "postgres"
  conn_string: "postgres://localhost/sessions"
  connect_timeout: "soon"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "connect_timeout") {
		t.Errorf("error should mention connect_timeout: %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: DriverPostgres, ConnString: "postgres://x", Table: "session"},
			Logging:  LoggingConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing driver", mutate: func(c *Config) { c.Database.Driver = "" }, wantErr: "database.driver is required"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "database.driver must be one of"},
		{name: "missing conn string", mutate: func(c *Config) { c.Database.ConnString = "" }, wantErr: "database.conn_string is required"},
		{name: "bad table", mutate: func(c *Config) { c.Database.Table = "session; drop" }, wantErr: "not a valid identifier"},
		{name: "bad dialect", mutate: func(c *Config) { c.Database.Dialect = "mssql" }, wantErr: "database.dialect"},
		{name: "negative max conns", mutate: func(c *Config) { c.Database.MaxConns = -1 }, wantErr: "max_conns"},
		{name: "max conns overflows int32", mutate: func(c *Config) { c.Database.MaxConns = math.MaxInt32 + 1 }, wantErr: "max_conns must be at most"},
		{name: "max conns at int32 limit", mutate: func(c *Config) { c.Database.MaxConns = math.MaxInt32 }},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "logging.level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	if got := DialectFor(DriverSQLite); got != "sqlite" {
		t.Errorf("DialectFor(sqlite) = %q", got)
	}
	if got := DialectFor(DriverPgx); got != "postgres" {
		t.Errorf("DialectFor(pgx) = %q", got)
	}
	if got := DialectFor(DriverPostgres); got != "postgres" {
		t.Errorf("DialectFor(postgres) = %q", got)
	}
}
