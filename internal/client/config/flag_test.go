package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	defaults := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-b", "sqlite", "-s", "/tmp/s.db", "-k", "jwt", "-store-secret", "pw", "-l", "https://x/login",
				"-o", "-d", "5s", "-p", "250ms", "-signing-key", "k1", "-log-level", "debug"},
			expected: &Config{
				StoreBackend: "sqlite", StorePath: "/tmp/s.db", StoreKey: "jwt", StoreSecret: "pw", LoginURL: "https://x/login",
				OpenBrowser: true, RedirectDelay: 5 * time.Second, PollInterval: 250 * time.Millisecond,
				SigningKey: "k1", LogLevel: "debug",
			},
		},
		{
			name:     "unrelated args are ignored",
			args:     []string{"cmd", "-c", "cfg.json", "-x", "1"},
			expected: defaults(),
		},
		{name: "bad duration", args: []string{"cmd", "-d", "soon"}, expectPanic: true},
		{name: "unknown backend", args: []string{"cmd", "-b", "redis"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cfg := defaults()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
