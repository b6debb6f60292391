package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestMustLoadPathDefaults(t *testing.T) {
	path := writeConfig(t, `
env: "dev"
storage: "memory"
tokens:
  session_token_secret: "from-file"
`)

	cfg := MustLoadPath(path)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 5*time.Second, cfg.HTTPServer.RequestTimeout)
	assert.True(t, cfg.HTTPServer.IPRateLimit)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 5, cfg.OTP.MaxPerWindow)
	assert.Equal(t, time.Hour, cfg.OTP.Window)
	assert.Equal(t, NotifierLog, cfg.Notifier.Driver)
	assert.Equal(t, 10*time.Second, cfg.Notifier.Timeout)
	assert.Equal(t, "@every 5m", cfg.Janitor.Schedule)
	assert.Equal(t, "from-file", cfg.Tokens.SessionTokenSecret)
}

func TestMustLoadPathEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_TOKEN_SECRET", "from-env")
	t.Setenv("NOTIFIER_DRIVER", NotifierSMTP)
	t.Setenv("OTP_TTL", "15m")

	path := writeConfig(t, `
tokens:
  session_token_secret: "from-file"
`)

	cfg := MustLoadPath(path)

	assert.Equal(t, "from-env", cfg.Tokens.SessionTokenSecret)
	assert.Equal(t, NotifierSMTP, cfg.Notifier.Driver)
	assert.Equal(t, 15*time.Minute, cfg.OTP.TTL)
}

func TestMustLoadPathPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustLoadPath(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}
