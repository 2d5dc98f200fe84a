package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ghozitech/ledger/internal/api/handler"
	"github.com/ghozitech/ledger/internal/api/middleware"
	"github.com/ghozitech/ledger/internal/api/sse"
	"github.com/ghozitech/ledger/internal/dependencies/clock"
	"github.com/ghozitech/ledger/internal/metrics"
	"github.com/ghozitech/ledger/internal/services/auth"
	"github.com/ghozitech/ledger/internal/services/ledger"
	"github.com/ghozitech/ledger/internal/services/redemption"
	"github.com/ghozitech/ledger/internal/services/session"
	"github.com/ghozitech/ledger/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger            *slog.Logger
	Clock             clock.Clock
	Storage           storage.Storage
	AuthService       *auth.Service
	Ledger            ledger.ServiceInterface
	Sessions          session.ManagerInterface
	Ranking           handler.Ranking
	RedemptionService redemption.ServiceInterface
	HubManager        *sse.HubManager
	Metrics           *metrics.Metrics

	// RateLimiter is optional; nil disables rate limiting
	RateLimiter *middleware.RateLimiter
	// RequestTimeout bounds non-streaming requests; 0 disables it
	RequestTimeout time.Duration
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService, cfg.Storage, cfg.Ledger)
	levelHandler := handler.NewLevelHandler(cfg.Storage, cfg.Clock)
	attemptHandler := handler.NewAttemptHandler(cfg.Sessions)
	bonusHandler := handler.NewBonusHandler(cfg.Ledger)
	leaderboardHandler := handler.NewLeaderboardHandler(cfg.Ranking, cfg.HubManager, cfg.Logger)
	redemptionHandler := handler.NewRedemptionHandler(cfg.RedemptionService)
	var pinger handler.Pinger
	if p, ok := cfg.Storage.(handler.Pinger); ok {
		pinger = p
	}
	healthHandler := handler.NewHealthHandler(pinger, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)
	timeoutMiddleware := middleware.Timeout(cfg.RequestTimeout)

	// Prometheus scrape endpoint sits outside the API middleware
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Metrics(cfg.Metrics))
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware)
	}

	// Streaming route, no request timeout
	api.HandleFunc("/leaderboard/events", leaderboardHandler.Events).Methods(http.MethodGet)

	// Everything else is bounded by the request timeout
	bounded := api.NewRoute().Subrouter()
	bounded.Use(timeoutMiddleware)

	// Public routes
	bounded.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	bounded.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	bounded.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)
	bounded.HandleFunc("/leaderboard", leaderboardHandler.Get).Methods(http.MethodGet)
	bounded.Handle("/levels", optionalAuthMiddleware(http.HandlerFunc(levelHandler.List))).Methods(http.MethodGet)

	// Protected routes
	protected := bounded.NewRoute().Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/players/logout", playerHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/players/me", playerHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/players/me/completions", playerHandler.History).Methods(http.MethodGet)

	protected.HandleFunc("/attempts", attemptHandler.Start).Methods(http.MethodPost)
	protected.HandleFunc("/attempts/{handle}", attemptHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/attempts/{handle}", attemptHandler.Cancel).Methods(http.MethodDelete)
	protected.HandleFunc("/attempts/{handle}/outcome", attemptHandler.SubmitOutcome).Methods(http.MethodPost)
	protected.HandleFunc("/attempts/{handle}/input", attemptHandler.SubmitInput).Methods(http.MethodPost)

	protected.HandleFunc("/bonus/{offer_id}/claim", bonusHandler.Claim).Methods(http.MethodPost)

	protected.HandleFunc("/redemptions", redemptionHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/redemptions", redemptionHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/redemptions/{id}", redemptionHandler.Get).Methods(http.MethodGet)

	return r
}
