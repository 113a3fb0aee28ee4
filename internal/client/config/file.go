package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
)

// FileConfig is a DTO used exclusively for config file decoding. Durations
// go through timex.Duration, so a file may spell them as "2s" (JSON and
// TOML) or as integer nanoseconds (JSON). Unset fields keep their earlier
// value.
type FileConfig struct {
	StoreBackend  string          `json:"store_backend" toml:"store_backend"`
	StorePath     string          `json:"store_path" toml:"store_path"`
	StoreKey      string          `json:"store_key" toml:"store_key"`
	StoreSecret   string          `json:"store_secret" toml:"store_secret"`
	LoginURL      string          `json:"login_url" toml:"login_url"`
	OpenBrowser   *bool           `json:"open_browser" toml:"open_browser"`
	RedirectDelay *timex.Duration `json:"redirect_delay" toml:"redirect_delay"`
	PollInterval  *timex.Duration `json:"poll_interval" toml:"poll_interval"`
	SigningKey    string          `json:"signing_key" toml:"signing_key"`
	LogLevel      string          `json:"log_level" toml:"log_level"`
}

// parseFile overlays Config with values loaded from a config file.
//
// The path comes from -c/-config (or $SESSIONKEEPER_CONFIG, see
// flagx.ConfigFileFlag). A ".toml" extension selects TOML, anything else is
// read as JSON. Panics on read or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}

	fc, err := readFile(path)
	if err != nil {
		panic(err)
	}
	fc.apply(cfg)
}

func readFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	return &fc, nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.StoreBackend, fc.StoreBackend)
	setString(&cfg.StorePath, fc.StorePath)
	setString(&cfg.StoreKey, fc.StoreKey)
	setString(&cfg.StoreSecret, fc.StoreSecret)
	setString(&cfg.LoginURL, fc.LoginURL)
	setString(&cfg.SigningKey, fc.SigningKey)
	setString(&cfg.LogLevel, fc.LogLevel)

	if fc.OpenBrowser != nil {
		cfg.OpenBrowser = *fc.OpenBrowser
	}
	if fc.RedirectDelay != nil {
		cfg.RedirectDelay = fc.RedirectDelay.Duration
	}
	if fc.PollInterval != nil {
		cfg.PollInterval = fc.PollInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
