// Package config defines the top-level configuration for the marketplace
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by NFTMARKET_* environment
// variables.
type Config struct {
	Market   MarketConfig   `toml:"market"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
	LogLevel string         `toml:"log_level"`
}

// MarketConfig holds the engine's policy parameters.
type MarketConfig struct {
	// FeeBps is the platform's cut per settlement in basis points.
	FeeBps uint32 `toml:"fee_bps"`
	// AuctionWindow is the fixed bidding window applied when an auction is
	// created, e.g. "168h".
	AuctionWindow duration `toml:"auction_window"`
	// EscrowAccount is the hex address holding custody and escrowed funds.
	EscrowAccount string `toml:"escrow_account"`
	// Admins are hex addresses granted the default admin role at startup.
	Admins []string `toml:"admins"`
	// Custodians are hex addresses whitelisted at startup.
	Custodians []string `toml:"custodians"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `toml:"backend"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// disabled the service runs without snapshot caching, distributed locking,
// or shared rate limiting.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards the mutating endpoints; empty disables auth (dev only).
	APIKey string `toml:"api_key"`
	// RateLimitPerMin bounds requests per client per minute; zero disables.
	RateLimitPerMin int `toml:"rate_limit_per_min"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "15m" or "168h".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Market: MarketConfig{
			FeeBps:        300,
			AuctionWindow: duration{168 * time.Hour},
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "nftmarket",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimitPerMin: 600,
		},
		LogLevel: "info",
	}
}

// validBackends enumerates the accepted values for Storage.Backend.
var validBackends = map[string]bool{
	"memory":   true,
	"postgres": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validAddress(s string) bool {
	return common.IsHexAddress(s) && common.HexToAddress(s) != (common.Address{})
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Market policy
	if c.Market.FeeBps > 10_000 {
		errs = append(errs, fmt.Sprintf("market: fee_bps must be 0-10000, got %d", c.Market.FeeBps))
	}
	if c.Market.AuctionWindow.Duration <= 0 {
		errs = append(errs, "market: auction_window must be positive")
	}
	if !validAddress(c.Market.EscrowAccount) {
		errs = append(errs, fmt.Sprintf("market: escrow_account %q is not a valid non-zero hex address", c.Market.EscrowAccount))
	}
	if len(c.Market.Admins) == 0 {
		errs = append(errs, "market: at least one admin address is required")
	}
	for _, a := range c.Market.Admins {
		if !validAddress(a) {
			errs = append(errs, fmt.Sprintf("market: admin %q is not a valid non-zero hex address", a))
		}
	}
	for _, a := range c.Market.Custodians {
		if !validAddress(a) {
			errs = append(errs, fmt.Sprintf("market: custodian %q is not a valid non-zero hex address", a))
		}
	}

	// Storage
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, fmt.Sprintf("storage: unknown backend %q (valid: memory, postgres)", c.Storage.Backend))
	}
	if strings.ToLower(c.Storage.Backend) == "postgres" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitPerMin < 0 {
			errs = append(errs, "server: rate_limit_per_min must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// EscrowAddress returns the parsed escrow account. Call after Validate.
func (c *Config) EscrowAddress() common.Address {
	return common.HexToAddress(c.Market.EscrowAccount)
}

// AdminAddresses returns the parsed admin list. Call after Validate.
func (c *Config) AdminAddresses() []common.Address {
	out := make([]common.Address, 0, len(c.Market.Admins))
	for _, a := range c.Market.Admins {
		out = append(out, common.HexToAddress(a))
	}
	return out
}

// CustodianAddresses returns the parsed startup whitelist. Call after
// Validate.
func (c *Config) CustodianAddresses() []common.Address {
	out := make([]common.Address, 0, len(c.Market.Custodians))
	for _, a := range c.Market.Custodians {
		out = append(out, common.HexToAddress(a))
	}
	return out
}
