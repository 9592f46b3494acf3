package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies NFTMARKET_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known NFTMARKET_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// Market policy
	setUint32(&cfg.Market.FeeBps, "NFTMARKET_MARKET_FEE_BPS")
	setDuration(&cfg.Market.AuctionWindow, "NFTMARKET_MARKET_AUCTION_WINDOW")
	setStr(&cfg.Market.EscrowAccount, "NFTMARKET_MARKET_ESCROW_ACCOUNT")
	setStringSlice(&cfg.Market.Admins, "NFTMARKET_MARKET_ADMINS")
	setStringSlice(&cfg.Market.Custodians, "NFTMARKET_MARKET_CUSTODIANS")

	// Storage
	setStr(&cfg.Storage.Backend, "NFTMARKET_STORAGE_BACKEND")

	// Postgres
	setStr(&cfg.Postgres.DSN, "NFTMARKET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "NFTMARKET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "NFTMARKET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "NFTMARKET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "NFTMARKET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "NFTMARKET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "NFTMARKET_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "NFTMARKET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "NFTMARKET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "NFTMARKET_POSTGRES_RUN_MIGRATIONS")

	// Redis
	setBool(&cfg.Redis.Enabled, "NFTMARKET_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "NFTMARKET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "NFTMARKET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "NFTMARKET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "NFTMARKET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "NFTMARKET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "NFTMARKET_REDIS_TLS_ENABLED")

	// Server
	setBool(&cfg.Server.Enabled, "NFTMARKET_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "NFTMARKET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "NFTMARKET_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "NFTMARKET_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMin, "NFTMARKET_SERVER_RATE_LIMIT_PER_MIN")

	// Top-level
	setStr(&cfg.LogLevel, "NFTMARKET_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint32(dst *uint32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			*dst = uint32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
