package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
)

var knownFlags = []string{"-b", "-s", "-k", "-l", "-o", "-d", "-p", "-store-secret", "-signing-key", "-log-level"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-b string        credential store backend (file|sqlite)
//	-s string        credential store path
//	-k string        credential slot key
//	-store-secret    secret used to seal the slot value at rest
//	-l string        login URL
//	-o               open the login URL in a browser
//	-d duration      redirect delay after expiry
//	-p duration      sqlite change poll interval
//	-signing-key     HS256 key for the mint command
//	-log-level       debug|info|warn|error
//
// os.Args is filtered with flagx.FilterArgs so that other flag sets can
// parse the same command line.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.StoreBackend, "b", cfg.StoreBackend, "credential store backend (file|sqlite)")
	fs.StringVar(&cfg.StorePath, "s", cfg.StorePath, "credential store path")
	fs.StringVar(&cfg.StoreKey, "k", cfg.StoreKey, "credential slot key")
	fs.StringVar(&cfg.StoreSecret, "store-secret", cfg.StoreSecret, "secret used to seal the slot value at rest")
	fs.StringVar(&cfg.LoginURL, "l", cfg.LoginURL, "login URL")
	fs.BoolVar(&cfg.OpenBrowser, "o", cfg.OpenBrowser, "open the login URL in a browser")
	fs.DurationVar(&cfg.RedirectDelay, "d", cfg.RedirectDelay, "redirect delay after expiry")
	fs.DurationVar(&cfg.PollInterval, "p", cfg.PollInterval, "sqlite change poll interval")
	fs.StringVar(&cfg.SigningKey, "signing-key", cfg.SigningKey, "HS256 key for mint")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if cfg.StoreBackend != BackendFile && cfg.StoreBackend != BackendSQLite {
		panic(fmt.Sprintf("unknown store backend %q", cfg.StoreBackend))
	}
}
