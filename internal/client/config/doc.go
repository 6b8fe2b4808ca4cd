// Package config loads runtime configuration for the fediauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables with the FEDIAUTH_ prefix (caarlos0/env).
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "data_dir": "/home/me/.config/fediauth",
//	  "store_driver": "sqlite",
//	  "request_timeout": "15s",
//	  "online_check_interval": "30s",
//	  "requests_per_second": 5,
//	  "log_level": "debug"
//	}
//
// The store passphrase is read from FEDIAUTH_STORE_PASSPHRASE or the JSON
// file only.
package config
