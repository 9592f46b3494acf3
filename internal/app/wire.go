package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taisys/nftmarket/internal/access"
	"github.com/taisys/nftmarket/internal/cache/redis"
	"github.com/taisys/nftmarket/internal/config"
	"github.com/taisys/nftmarket/internal/domain"
	"github.com/taisys/nftmarket/internal/engine"
	"github.com/taisys/nftmarket/internal/fee"
	"github.com/taisys/nftmarket/internal/platform/local"
	"github.com/taisys/nftmarket/internal/store/memory"
	"github.com/taisys/nftmarket/internal/store/postgres"
)

// Dependencies bundles everything the application needs to serve requests.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Engine *engine.Engine

	// Collaborator simulators, exposed so a dev deployment can seed assets
	// and balances.
	Custodians *local.CustodianSet
	Bank       *local.Bank
	Token      *local.Token

	// Optional Redis-backed components; nil when Redis is disabled.
	MarketCache  domain.MarketItemCache
	AuctionCache domain.AuctionItemCache
	RateLimiter  domain.RateLimiter
}

// stores groups the persistence interfaces the engine consumes.
type stores struct {
	items     domain.MarketItemStore
	auctions  domain.AuctionItemStore
	bids      domain.BidVaultStore
	balances  domain.BalanceStore
	whitelist domain.WhitelistStore
	audit     domain.AuditStore
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Persistence ---
	var st stores
	switch cfg.Storage.Backend {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		st = stores{
			items:     postgres.NewMarketItemStore(pool),
			auctions:  postgres.NewAuctionItemStore(pool),
			bids:      postgres.NewBidVaultStore(pool),
			balances:  postgres.NewBalanceStore(pool),
			whitelist: postgres.NewWhitelistStore(pool),
			audit:     postgres.NewAuditStore(pool),
		}
	default:
		st = stores{
			items:     memory.NewMarketItemStore(),
			auctions:  memory.NewAuctionItemStore(),
			bids:      memory.NewBidVaultStore(),
			balances:  memory.NewBalanceStore(),
			whitelist: memory.NewWhitelistStore(),
			audit:     memory.NewAuditStore(),
		}
	}

	// --- Redis (optional) ---
	var lockManager domain.LockManager
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.MarketCache = redis.NewMarketItemCache(redisClient)
		deps.AuctionCache = redis.NewAuctionItemCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		lockManager = redis.NewLockManager(redisClient)
	}

	// --- External collaborators ---
	escrow := cfg.EscrowAddress()
	deps.Custodians = local.NewCustodianSet()
	deps.Bank = local.NewBank()
	deps.Token = local.NewToken()
	rails := map[domain.Currency]domain.PaymentRail{
		domain.CurrencyNative: local.NewNativeRail(deps.Bank, escrow),
		domain.CurrencyToken:  local.NewTokenRail(deps.Token, escrow),
	}

	// --- Policy ---
	fees, err := fee.NewSchedule(cfg.Market.FeeBps)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: fee schedule: %w", err)
	}
	roles := access.NewController(cfg.AdminAddresses()...)

	// --- Engine ---
	eng, err := engine.New(engine.Deps{
		Items:         st.items,
		Auctions:      st.auctions,
		Bids:          st.bids,
		Balances:      st.balances,
		Whitelist:     st.whitelist,
		Audit:         st.audit,
		Roles:         roles,
		Fees:          fees,
		Assets:        deps.Custodians,
		Rails:         rails,
		Escrow:        escrow,
		AuctionWindow: cfg.Market.AuctionWindow.Duration,
		Locks:         lockManager,
		Logger:        logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: engine: %w", err)
	}
	deps.Engine = eng

	// Seed the custodian whitelist directly; startup provisioning is not an
	// admin-authenticated call.
	for _, custodian := range cfg.CustodianAddresses() {
		if err := st.whitelist.Add(ctx, custodian); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: seed whitelist: %w", err)
		}
	}

	return deps, cleanup, nil
}
