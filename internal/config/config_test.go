package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
database:
  driver: memory
auth:
  jwt_secret: from-file
  access_ttl: 5m
pricing:
  fee_rate: "0.25"
reminders:
  enabled: true
  window: 12h
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 12*time.Hour, cfg.Reminders.Window)
	assert.True(t, cfg.Reminders.Enabled)

	rate, err := cfg.FeeRate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.25")))

	// defaults
	assert.Equal(t, "./files", cfg.Files.RootDir)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "@hourly", cfg.Reminders.Schedule)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("INTIHELP_SERVER_PORT", "7000")
	t.Setenv("INTIHELP_AUTH_JWT_SECRET", "from-env")
	t.Setenv("INTIHELP_PRICING_FEE_RATE", "0.10")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "0.10", cfg.Pricing.FeeRate)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"missing secret":       "database:\n  driver: memory\n",
		"postgres without url": "database:\n  driver: postgres\nauth:\n  jwt_secret: x\n",
		"unknown driver":       "database:\n  driver: mysql\nauth:\n  jwt_secret: x\n",
		"fee too high":         "database:\n  driver: memory\nauth:\n  jwt_secret: x\npricing:\n  fee_rate: \"1.5\"\n",
		"fee not a number":     "database:\n  driver: memory\nauth:\n  jwt_secret: x\npricing:\n  fee_rate: abc\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
