package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/fediauth/internal/flagx"
)

var knownFlags = []string{
	"-d", "-s", "-dsn", "-t", "-i", "-r", "-name", "-website",
	"-log-backend", "-log-level", "-log-format",
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string         data directory
//	-s string         store driver (sqlite, pgx)
//	-dsn string       store DSN
//	-t duration       per-request timeout
//	-i duration       online check interval
//	-r float          outgoing requests per second (0 = unlimited)
//	-name string      client name registered at the instance
//	-website string   client website registered at the instance
//	-log-backend, -log-level, -log-format
//
// args is filtered with flagx.FilterArgs so flags owned by other components
// (like -c) do not interfere. The passphrase is never taken from flags.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("fediauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.StoreDriver, "s", cfg.StoreDriver, "store driver (sqlite, pgx)")
	fs.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "store DSN")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.DurationVar(&cfg.OnlineCheckInterval, "i", cfg.OnlineCheckInterval, "online check interval")
	fs.Float64Var(&cfg.RequestsPerSecond, "r", cfg.RequestsPerSecond, "requests per second")
	fs.StringVar(&cfg.ClientName, "name", cfg.ClientName, "client name")
	fs.StringVar(&cfg.Website, "website", cfg.Website, "client website")
	fs.StringVar(&cfg.LogBackend, "log-backend", cfg.LogBackend, "log backend (slog, zap)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
