// Package server assembles the HTTP API for the lending pool.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/meridianfi/lendcore/internal/domain"
	"github.com/meridianfi/lendcore/internal/server/handler"
	"github.com/meridianfi/lendcore/internal/server/middleware"
	"github.com/meridianfi/lendcore/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// APIKey guards the admin routes. If empty, admin authentication is
	// disabled (development only).
	APIKey string

	// RateLimit is the per-client request budget per RateWindow. Zero
	// disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health      *handler.HealthHandler
	Assets      *handler.AssetHandler
	Positions   *handler.PositionHandler
	Liquidation *handler.LiquidationHandler
	Events      *handler.EventHandler
	Rates       *handler.RateHandler
	Admin       *handler.AdminHandler

	// Archives is optional; its routes are registered only when non-nil.
	Archives *handler.ArchiveHandler
}

// Server is the headless HTTP + WebSocket API server for the lending pool.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux. It
// wires up middleware (logging, CORS, rate limiting) and guards the admin
// routes with API-key auth. The limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Asset registry reads.
	mux.HandleFunc("GET /api/assets", handlers.Assets.ListAssets)
	mux.HandleFunc("GET /api/assets/{symbol}", handlers.Assets.GetAsset)
	mux.HandleFunc("GET /api/assets/{symbol}/details", handlers.Assets.AssetDetails)

	// Position ledger.
	mux.HandleFunc("POST /api/deposit", handlers.Positions.Deposit)
	mux.HandleFunc("POST /api/borrow", handlers.Positions.Borrow)
	mux.HandleFunc("GET /api/positions/{user}/{symbol}", handlers.Positions.GetPosition)
	mux.HandleFunc("GET /api/positions/{user}/health", handlers.Liquidation.Health)

	// Liquidations.
	mux.HandleFunc("GET /api/liquidations/preview", handlers.Liquidation.Preview)
	mux.HandleFunc("POST /api/liquidations", handlers.Liquidation.Liquidate)

	// Event journal.
	mux.HandleFunc("GET /api/events", handlers.Events.ListEvents)

	// Utilization rate curve.
	mux.HandleFunc("GET /api/rates/{symbol}", handlers.Rates.GetRate)
	mux.HandleFunc("POST /api/rates/{symbol}/update", handlers.Rates.UpdateRate)

	// Admin routes behind API-key auth.
	adminAuth := middleware.Auth(cfg.APIKey)
	mux.Handle("POST /api/admin/initialize", adminAuth(http.HandlerFunc(handlers.Admin.Initialize)))
	mux.Handle("POST /api/admin/assets", adminAuth(http.HandlerFunc(handlers.Admin.AddAsset)))
	mux.Handle("PUT /api/admin/assets/{symbol}/price", adminAuth(http.HandlerFunc(handlers.Admin.UpdatePrice)))
	mux.Handle("POST /api/admin/rates", adminAuth(http.HandlerFunc(handlers.Admin.RegisterRateModel)))
	if handlers.Archives != nil {
		mux.Handle("GET /api/admin/archives", adminAuth(http.HandlerFunc(handlers.Archives.ListArchives)))
		mux.Handle("GET /api/admin/archives/{name}", adminAuth(http.HandlerFunc(handlers.Archives.GetArchive)))
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

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
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
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
