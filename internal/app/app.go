// Package app provides the top-level application lifecycle management for the
// marketplace service. It wires together all dependencies (stores, caches,
// collaborator adapters, the engine, and the HTTP API) and runs them until
// the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taisys/nftmarket/internal/config"
	"github.com/taisys/nftmarket/internal/server"
	"github.com/taisys/nftmarket/internal/server/handler"
	"github.com/taisys/nftmarket/internal/service"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the HTTP API
// when enabled, and blocks until the context is cancelled. On return it runs
// all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("storage", a.cfg.Storage.Backend),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "api server disabled, idling until shutdown")
		<-ctx.Done()
		return ctx.Err()
	}

	marketSvc := service.NewMarketService(deps.Engine, deps.MarketCache, a.logger)
	auctionSvc := service.NewAuctionService(deps.Engine, deps.AuctionCache, a.logger)

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Market:  handler.NewMarketHandler(marketSvc, a.logger),
		Auction: handler.NewAuctionHandler(auctionSvc, a.logger),
		Ledger:  handler.NewLedgerHandler(deps.Engine, a.logger),
		Admin:   handler.NewAdminHandler(deps.Engine, a.logger),
	}, deps.RateLimiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
