package config

import (
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, BackendFile, c.StoreBackend)
	assert.Equal(t, "token", c.StoreKey)
	assert.Equal(t, 2*time.Second, c.RedirectDelay)
	assert.Equal(t, time.Second, c.PollInterval)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv(flagx.ConfigEnvVar, "")

	path := writeTemp(t, "cfg.json", `{"store_path": "from-file", "log_level": "debug"}`)
	os.Args = []string{"testbin", "-c", path, "-s", "from-flag"}

	cfg := LoadConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "from-flag", cfg.StorePath)
	assert.Equal(t, "debug", cfg.LogLevel)
}
