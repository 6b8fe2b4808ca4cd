package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fediauth/internal/flagx"
	"github.com/dmitrijs2005/fediauth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. Only keys present in the file
// override earlier values.
type JsonConfig struct {
	DataDir             *string         `json:"data_dir"`
	StoreDriver         *string         `json:"store_driver"`
	DatabaseDSN         *string         `json:"database_dsn"`
	StorePassphrase     *string         `json:"store_passphrase"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RequestsPerSecond   *float64        `json:"requests_per_second"`
	ClientName          *string         `json:"client_name"`
	Website             *string         `json:"website"`
	Scopes              *string         `json:"scopes"`
	LogBackend          *string         `json:"log_backend"`
	LogLevel            *string         `json:"log_level"`
	LogFormat           *string         `json:"log_format"`
}

// parseJSON overlays cfg with the JSON file named by -c or -config in args.
// No flag means nothing to load.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.StoreDriver, jc.StoreDriver)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.StorePassphrase, jc.StorePassphrase)
	setString(&cfg.ClientName, jc.ClientName)
	setString(&cfg.Website, jc.Website)
	setString(&cfg.Scopes, jc.Scopes)
	setString(&cfg.LogBackend, jc.LogBackend)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *jc.RequestsPerSecond
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
