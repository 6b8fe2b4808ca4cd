package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/common"
	"github.com/dmitrijs2005/fediauth/internal/filex"
)

// Store drivers. "postgres" is accepted as an alias of DriverPostgres.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config holds runtime settings for the fediauth CLI.
//
// Units: durations are time.Duration, RequestsPerSecond is a rate (0 = no
// limit).
type Config struct {
	DataDir     string `env:"DATA_DIR"`
	StoreDriver string `env:"STORE_DRIVER"`
	// DatabaseDSN defaults to a file in DataDir for sqlite.
	DatabaseDSN     string `env:"DATABASE_DSN"`
	StorePassphrase string `env:"STORE_PASSPHRASE"`

	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	RequestsPerSecond   float64       `env:"REQUESTS_PER_SECOND"`

	ClientName string `env:"CLIENT_NAME"`
	Website    string `env:"WEBSITE"`
	Scopes     string `env:"SCOPES"`

	LogBackend string `env:"LOG_BACKEND"`
	LogLevel   string `env:"LOG_LEVEL"`
	LogFormat  string `env:"LOG_FORMAT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = filex.DefaultDataDir()
	c.StoreDriver = DriverSQLite
	c.RequestTimeout = 15 * time.Second
	c.OnlineCheckInterval = 30 * time.Second
	c.RequestsPerSecond = 5
	c.ClientName = "fediauth"
	c.Scopes = common.DefaultScopes
	c.LogBackend = "slog"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate normalizes aliases and rejects unusable combinations.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
	case DriverPostgres, "postgres":
		c.StoreDriver = DriverPostgres
		if c.DatabaseDSN == "" {
			return fmt.Errorf("store driver %s needs a database dsn", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative")
	}
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("online check interval must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative")
	}
	return nil
}

// SQLitePath is the store file used when no DSN is configured.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "fediauth.db")
}

// Load constructs a Config, applies defaults, then overlays values from the
// environment, a JSON file (if -c/-config is in args) and command-line
// flags. Later sources take precedence over earlier ones.
func Load(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, environ); err != nil {
		return nil, err
	}
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], nil)
}
