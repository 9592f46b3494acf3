package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
log_level = "debug"

[market]
fee_bps = 250
auction_window = "72h"
escrow_account = "0x00000000000000000000000000000000000000e5"
admins = ["0x00000000000000000000000000000000000000a1"]

[storage]
backend = "memory"

[server]
enabled = true
port = 9000
api_key = "secret"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint32(250), cfg.Market.FeeBps)
	assert.Equal(t, 72*time.Hour, cfg.Market.AuctionWindow.Duration)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.APIKey)

	// Unset sections keep their defaults.
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.False(t, cfg.Redis.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NFTMARKET_MARKET_FEE_BPS", "500")
	t.Setenv("NFTMARKET_SERVER_PORT", "8080")
	t.Setenv("NFTMARKET_MARKET_ADMINS", "0x00000000000000000000000000000000000000a1,0x00000000000000000000000000000000000000a2")

	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, uint32(500), cfg.Market.FeeBps)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Len(t, cfg.AdminAddresses(), 2)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fee over denominator", func(c *Config) { c.Market.FeeBps = 10_001 }},
		{"zero auction window", func(c *Config) { c.Market.AuctionWindow.Duration = 0 }},
		{"missing escrow", func(c *Config) { c.Market.EscrowAccount = "" }},
		{"zero escrow", func(c *Config) {
			c.Market.EscrowAccount = "0x0000000000000000000000000000000000000000"
		}},
		{"no admins", func(c *Config) { c.Market.Admins = nil }},
		{"bad admin", func(c *Config) { c.Market.Admins = []string{"not-an-address"} }},
		{"bad backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"bad port", func(c *Config) { c.Server.Port = 99999 }},
		{"postgres without host", func(c *Config) {
			c.Storage.Backend = "postgres"
			c.Postgres.Host = ""
		}},
		{"redis without addr", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleTOML))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
