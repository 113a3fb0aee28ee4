package config

import (
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds runtime settings for the SessionKeeper CLI.
//
// Fields:
//   - StoreBackend: credential store implementation, "file" or "sqlite".
//   - StorePath: location of the shared credential store.
//   - StoreKey: well-known key of the credential slot.
//   - StoreSecret: when set, slot values are sealed at rest with a key
//     derived from it.
//   - LoginURL: login surface opened after the session expires.
//   - OpenBrowser: whether the login URL is opened in a browser.
//   - RedirectDelay: pause between the expiry notice and the redirect.
//   - PollInterval: change polling interval of the sqlite backend.
//   - SigningKey: HS256 key used by the mint command.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	StoreBackend  string
	StorePath     string
	StoreKey      string
	StoreSecret   string
	LoginURL      string
	OpenBrowser   bool
	RedirectDelay time.Duration
	PollInterval  time.Duration
	SigningKey    string
	LogLevel      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.StoreBackend = BackendFile
	c.StorePath = "sessionkeeper.json"
	c.StoreKey = common.DefaultCredentialKey
	c.LoginURL = "http://127.0.0.1:8080/login"
	c.OpenBrowser = false
	c.RedirectDelay = 2 * time.Second
	c.PollInterval = time.Second
	c.SigningKey = "dev-signing-key"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
