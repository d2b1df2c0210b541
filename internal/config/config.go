// ABOUTME: Configuration loading and parsing for coven-sessions
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Database drivers
const (
	DriverPostgres = "postgres" // lib/pq through database/sql
	DriverPgx      = "pgx"      // pgxpool, connection checkout per statement
	DriverSQLite   = "sqlite"   // modernc.org/sqlite through database/sql
)

// Defaults applied by Load
const (
	DefaultTable          = "session"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultConnectTimeout = 10 * time.Second
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config represents the complete coven-sessions configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the HTTP API address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// DatabaseConfig holds the session backend configuration
type DatabaseConfig struct {
	Driver     string `yaml:"driver" toml:"driver"`
	ConnString string `yaml:"conn_string" toml:"conn_string"`
	Table      string `yaml:"table" toml:"table"`

	// Dialect overrides the SQL dialect derived from the driver ("postgres" or "sqlite")
	Dialect string `yaml:"dialect" toml:"dialect"`

	// Checkout makes database/sql drivers take a dedicated connection per statement
	Checkout bool `yaml:"checkout" toml:"checkout"`

	MaxConns int `yaml:"max_conns" toml:"max_conns"`

	ConnectTimeout    time.Duration `yaml:"-" toml:"-"`
	ConnectTimeoutRaw string        `yaml:"connect_timeout" toml:"connect_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // text, json, pretty
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in optional fields left empty by the file
func (c *Config) applyDefaults() {
	if c.Database.Table == "" {
		c.Database.Table = DefaultTable
	}
	if c.Database.Dialect == "" {
		c.Database.Dialect = DialectFor(c.Database.Driver)
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// DialectFor returns the SQL dialect spoken by a driver
func DialectFor(driver string) string {
	if driver == DriverSQLite {
		return "sqlite"
	}
	return "postgres"
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
// The server address is checked separately by the serve command.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json", "pretty":
	default:
		return fmt.Errorf("logging.format must be one of text, json, pretty (got %q)", c.Logging.Format)
	}

	return nil
}

// Validate checks the database section on its own
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverPostgres, DriverPgx, DriverSQLite:
	case "":
		return fmt.Errorf("database.driver is required")
	default:
		return fmt.Errorf("database.driver must be one of postgres, pgx, sqlite (got %q)", d.Driver)
	}

	if d.ConnString == "" {
		return fmt.Errorf("database.conn_string is required")
	}

	if d.Table != "" && !identifierRe.MatchString(d.Table) {
		return fmt.Errorf("database.table %q is not a valid identifier", d.Table)
	}

	if d.Dialect != "" && d.Dialect != "postgres" && d.Dialect != "sqlite" {
		return fmt.Errorf("database.dialect must be postgres or sqlite (got %q)", d.Dialect)
	}

	if d.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must not be negative")
	}
	if d.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database.max_conns must be at most %d", math.MaxInt32)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Database.ConnectTimeoutRaw != "" {
		cfg.Database.ConnectTimeout, err = time.ParseDuration(cfg.Database.ConnectTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing connect_timeout %q: %w", cfg.Database.ConnectTimeoutRaw, err)
		}
	}

	return nil
}
