// Package config loads runtime configuration for the SessionKeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config (or
//     $SESSIONKEEPER_CONFIG). Files ending in ".toml" are TOML, others JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # File schema
//
// Durations accept strings like "2s"; JSON also accepts integer nanoseconds:
//
//	{
//	  "store_backend": "sqlite",
//	  "store_path": "/home/me/.sessionkeeper/session.db",
//	  "login_url": "https://example.com/login",
//	  "store_secret": "change-me",
//	  "open_browser": true,
//	  "redirect_delay": "2s",
//	  "poll_interval": "500ms"
//	}
//
// The TOML form uses the same keys.
package config
