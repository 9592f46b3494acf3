package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taisys/nftmarket/internal/domain"
	"github.com/taisys/nftmarket/internal/server/handler"
	"github.com/taisys/nftmarket/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimitPerMin int    // if zero or no limiter is supplied, rate limiting is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Market  *handler.MarketHandler
	Auction *handler.AuctionHandler
	Ledger  *handler.LedgerHandler
	Admin   *handler.AdminHandler
}

// Server is the headless HTTP API server for the marketplace engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, optional rate limiting).
// limiter may be nil, in which case requests are never throttled.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Fixed-price marketplace.
	mux.HandleFunc("GET /api/market/items", handlers.Market.ListItems)
	mux.HandleFunc("POST /api/market/items", handlers.Market.CreateItem)
	mux.HandleFunc("GET /api/market/items/{id}", handlers.Market.GetItem)
	mux.HandleFunc("DELETE /api/market/items/{id}", handlers.Market.RemoveItem)
	mux.HandleFunc("POST /api/market/items/{id}/buy", handlers.Market.BuyItem)
	mux.HandleFunc("GET /api/market/sellers/{addr}/items", handlers.Market.ListSellerItems)

	// Auctions.
	mux.HandleFunc("GET /api/auction/items", handlers.Auction.ListItems)
	mux.HandleFunc("POST /api/auction/items", handlers.Auction.CreateItem)
	mux.HandleFunc("GET /api/auction/items/{id}", handlers.Auction.GetItem)
	mux.HandleFunc("DELETE /api/auction/items/{id}", handlers.Auction.RemoveItem)
	mux.HandleFunc("POST /api/auction/items/{id}/bids", handlers.Auction.PlaceBid)
	mux.HandleFunc("GET /api/auction/items/{id}/revertable", handlers.Auction.Revertable)
	mux.HandleFunc("POST /api/auction/items/{id}/revert", handlers.Auction.RevertBid)
	mux.HandleFunc("POST /api/auction/items/{id}/end", handlers.Auction.EndAuction)
	mux.HandleFunc("GET /api/auction/sellers/{addr}/items", handlers.Auction.ListSellerItems)

	// Drawable balances.
	mux.HandleFunc("GET /api/ledger/platform/drawable", handlers.Ledger.PlatformDrawable)
	mux.HandleFunc("POST /api/ledger/platform/withdrawals", handlers.Ledger.WithdrawPlatform)
	mux.HandleFunc("GET /api/ledger/{addr}/drawable", handlers.Ledger.Drawable)
	mux.HandleFunc("POST /api/ledger/withdrawals", handlers.Ledger.Withdraw)

	// Administration.
	mux.HandleFunc("POST /api/admin/whitelist", handlers.Admin.SetWhitelist)
	mux.HandleFunc("GET /api/admin/whitelist/{addr}", handlers.Admin.IsWhitelisted)
	mux.HandleFunc("POST /api/admin/admins", handlers.Admin.GrantAdmin)
	mux.HandleFunc("GET /api/admin/audit", handlers.Admin.AuditTrail)

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting when a limiter is available.
	if limiter != nil && cfg.RateLimitPerMin > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMin, time.Minute)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
