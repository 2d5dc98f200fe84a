package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ghozitech/ledger/internal/api"
	"github.com/ghozitech/ledger/internal/api/middleware"
	"github.com/ghozitech/ledger/internal/api/sse"
	"github.com/ghozitech/ledger/internal/config"
	"github.com/ghozitech/ledger/internal/dependencies/clock"
	"github.com/ghozitech/ledger/internal/dependencies/random"
	"github.com/ghozitech/ledger/internal/events"
	"github.com/ghozitech/ledger/internal/metrics"
	"github.com/ghozitech/ledger/internal/services/adjudicator"
	"github.com/ghozitech/ledger/internal/services/auth"
	"github.com/ghozitech/ledger/internal/services/ledger"
	"github.com/ghozitech/ledger/internal/services/rank"
	"github.com/ghozitech/ledger/internal/services/redemption"
	"github.com/ghozitech/ledger/internal/services/session"
	"github.com/ghozitech/ledger/internal/storage"
	"github.com/ghozitech/ledger/internal/storage/memory"
	redisstorage "github.com/ghozitech/ledger/internal/storage/redis"
	"github.com/ghozitech/ledger/internal/storage/sqlstore"
)

// Storage type constants
const (
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
	StorageTypeSQL    = config.StorageSQL
)

var _ rank.Pusher = (*sse.Broadcaster)(nil)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Infrastructure
	Bus         *events.Bus
	Metrics     *metrics.Metrics
	HubManager  *sse.HubManager
	Broadcaster *sse.Broadcaster
	RateLimiter *middleware.RateLimiter

	// Services
	AuthService       *auth.Service
	Ledger            *ledger.Service
	Adjudicators      *adjudicator.Registry
	Sessions          *session.Manager
	RedemptionService *redemption.Service
	RankEngine        *rank.Engine

	logger *slog.Logger
}

// RateLimitConfig configures the per-client API rate limit
type RateLimitConfig struct {
	// RequestsPerSecond of 0 disables rate limiting
	RequestsPerSecond float64
	Burst             int
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sql")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLConfig holds database settings (required if StorageType is "sql")
	SQLConfig *sqlstore.Config

	// Service settings; zero values fall back to each service's defaults
	AuthConfig    auth.Config
	LedgerConfig  ledger.Config
	SessionConfig session.Config
	RetryConfig   storage.RetryConfig
	RateLimit     RateLimitConfig
}

// ConfigFromSettings maps loaded server settings onto a factory Config
func ConfigFromSettings(cfg *config.Config, logger *slog.Logger) Config {
	retry := storage.RetryConfig{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = cfg.Redis.URL
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns

	sqlCfg := sqlstore.DefaultConfig()
	sqlCfg.Driver = cfg.SQL.Driver
	sqlCfg.DSN = cfg.SQL.DSN
	sqlCfg.MaxOpenConns = cfg.SQL.MaxOpenConns
	sqlCfg.ConnMaxLifetime = cfg.SQL.ConnMaxLifetime

	return Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
		RedisConfig: &redisCfg,
		SQLConfig:   &sqlCfg,
		AuthConfig:  auth.Config{SessionDuration: cfg.Auth.SessionDuration},
		LedgerConfig: ledger.Config{
			BonusPoints: cfg.Ledger.BonusPoints,
			BonusTTL:    cfg.Ledger.BonusTTL,
			Retry:       retry,
		},
		SessionConfig: session.Config{RetentionPeriod: cfg.Session.RetentionPeriod},
		RetryConfig:   retry,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	}
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	return newWithDependencies(store, clock.New(), random.New(), metrics.New(), cfg, logger), nil
}

// newStorage creates the storage backend selected by cfg
func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeSQL:
		if cfg.SQLConfig == nil {
			return nil, errors.New("SQLConfig required when StorageType is sql")
		}
		return sqlstore.Open(*cfg.SQLConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'sql'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	m *metrics.Metrics,
	cfg Config,
	logger *slog.Logger,
) *App {
	bus := events.NewBus(logger)
	hubManager := sse.NewHubManager(logger)
	broadcaster := sse.NewBroadcaster(hubManager, clk, logger)

	ledgerCfg := cfg.LedgerConfig
	if ledgerCfg.Retry.MaxAttempts == 0 {
		ledgerCfg.Retry = cfg.RetryConfig
	}

	ledgerService := ledger.New(store, bus, clk, m, logger, ledgerCfg)
	adjudicators := adjudicator.Default()
	sessions := session.NewManager(store, ledgerService, adjudicators, clk, rnd, m, logger, cfg.SessionConfig)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, clk)
	}

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		Bus:               bus,
		Metrics:           m,
		HubManager:        hubManager,
		Broadcaster:       broadcaster,
		RateLimiter:       limiter,
		AuthService:       auth.New(store, bus, clk, rnd, logger, cfg.AuthConfig),
		Ledger:            ledgerService,
		Adjudicators:      adjudicators,
		Sessions:          sessions,
		RedemptionService: redemption.New(store, bus, clk, m, logger, cfg.RetryConfig),
		RankEngine:        rank.NewEngine(store, bus, broadcaster, clk, m, logger),
		logger:            logger,
	}
}

// Router builds the HTTP API for the app
func (a *App) Router(requestTimeout time.Duration) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:            a.logger,
		Clock:             a.Clock,
		Storage:           a.Storage,
		AuthService:       a.AuthService,
		Ledger:            a.Ledger,
		Sessions:          a.Sessions,
		Ranking:           a.RankEngine,
		RedemptionService: a.RedemptionService,
		HubManager:        a.HubManager,
		Metrics:           a.Metrics,
		RateLimiter:       a.RateLimiter,
		RequestTimeout:    requestTimeout,
	})
}

// Sweep removes expired transient state: finished attempts, bonus offers,
// auth sessions, idle rate-limit buckets and empty SSE hubs
func (a *App) Sweep() {
	attempts := a.Sessions.CleanupFinished()
	offers := a.Ledger.CleanExpiredOffers()
	sessions := a.AuthService.CleanExpiredSessions()
	var visitors int
	if a.RateLimiter != nil {
		visitors = a.RateLimiter.Cleanup(10 * time.Minute)
	}
	a.HubManager.CleanupEmptyHubs()

	if attempts+offers+sessions+visitors > 0 {
		a.logger.Info("swept expired state",
			slog.Int("attempts", attempts),
			slog.Int("bonus_offers", offers),
			slog.Int("auth_sessions", sessions),
			slog.Int("rate_limit_clients", visitors))
	}
}

// Close stops background components and releases the storage backend
func (a *App) Close() error {
	a.Sessions.Close()
	a.HubManager.Close()
	a.Bus.Close()
	if c, ok := a.Storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
