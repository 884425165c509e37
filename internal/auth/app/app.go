package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/nomadpay/authcore/internal/auth/domain"
	httpapi "github.com/nomadpay/authcore/internal/auth/http"
	"github.com/nomadpay/authcore/internal/auth/service"
	"github.com/nomadpay/authcore/internal/auth/store"
	"github.com/nomadpay/authcore/internal/auth/store/drivers/postgres"
	"github.com/nomadpay/authcore/internal/auth/store/drivers/sqlite"
	"github.com/nomadpay/authcore/pkg/cryptox"
	"github.com/nomadpay/authcore/pkg/httpx"
	"github.com/nomadpay/authcore/pkg/jwtx"
	"github.com/nomadpay/authcore/pkg/metricsx"
	"github.com/nomadpay/authcore/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	codec   *jwtx.Codec
	hasher  *cryptox.Argon2Hasher
	metrics *metricsx.Metrics
	redis   *redis.Client // nil unless RATELIMIT_BACKEND=redis

	// Services
	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	registerLimiter httpx.Limiter
	loginLimiter    httpx.Limiter
	sweepers        []httpx.Sweeper

	// HTTP server
	server  *http.Server
	router  *httpapi.Router
	running bool
}

// New creates a new Application instance with all dependencies initialized.
// Nothing is served until Run.
func New(cfg Config) (*Application, error) {
	return NewWithLogger(cfg, slogx.New(slogx.Config{
		Service: "authcore",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}))
}

// NewWithLogger is New with a caller supplied logger.
func NewWithLogger(cfg Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg:     cfg,
		logger:  logger,
		metrics: metricsx.New(),
	}

	if err := app.initSentry(); err != nil {
		return nil, err
	}

	codec, err := InitTokenCodec(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.codec = codec

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewArgon2Hasher(pepper)

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initLimiters(ctx); err != nil {
		app.closeResources()
		return nil, err
	}

	app.initServices()

	if err := app.ensureAdmin(ctx); err != nil {
		app.closeResources()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.running = true
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"ratelimit_backend", app.cfg.RateLimitBackend,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		app.closeResources()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application. It may be called on an
// application that was never Run.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.running {
		app.housekeepingService.Stop()
	}

	if err := app.closeResources(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// closeResources releases the database, the redis client and flushes Sentry.
func (app *Application) closeResources() error {
	var errs []error

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
			errs = append(errs, err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}

	if app.cfg.SentryDSN != "" {
		sentry.Flush(2 * time.Second)
	}

	return errors.Join(errs...)
}

func (app *Application) initSentry() error {
	if app.cfg.SentryDSN == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              app.cfg.SentryDSN,
		Environment:      app.cfg.Env,
		Release:          BuildVersion,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	app.logger.Info("sentry reporting enabled")
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		app.db = nil
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initLimiters builds the register and login limiters for the configured
// backend. In-process limiters are also registered for housekeeping sweeps.
func (app *Application) initLimiters(ctx context.Context) error {
	switch app.cfg.RateLimitBackend {
	case "redis":
		opts, err := redis.ParseURL(app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		app.redis = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := app.redis.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}

		app.registerLimiter = httpx.NewRedisSlidingWindow(app.redis, "authcore:ratelimit", app.cfg.RegisterLimit)
		app.loginLimiter = httpx.NewRedisSlidingWindow(app.redis, "authcore:ratelimit", app.cfg.LoginLimit)

	case "bucket":
		register := httpx.NewTokenBucket(app.cfg.RegisterLimit)
		login := httpx.NewTokenBucket(app.cfg.LoginLimit)
		app.registerLimiter, app.loginLimiter = register, login
		app.sweepers = append(app.sweepers, register, login)

	default:
		register := httpx.NewSlidingWindow(app.cfg.RegisterLimit)
		login := httpx.NewSlidingWindow(app.cfg.LoginLimit)
		app.registerLimiter, app.loginLimiter = register, login
		app.sweepers = append(app.sweepers, register, login)
	}

	app.logger.Info("rate limiting configured",
		"backend", app.cfg.RateLimitBackend,
		"register_per_window", app.cfg.RegisterLimit.RequestsPerWindow,
		"login_per_window", app.cfg.LoginLimit.RequestsPerWindow,
	)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.authService = service.NewAuthService(app.db, app.codec, app.hasher, app.metrics)
	app.authService.AccessTTL = app.cfg.AccessTTL
	app.authService.RefreshTTL = app.cfg.RefreshTTL

	app.housekeepingService = service.NewHousekeepingService(
		app.authService.Ledger,
		app.metrics,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.sweepers...,
	)
}

// ensureAdmin creates the configured admin identity on first start.
func (app *Application) ensureAdmin(ctx context.Context) error {
	if app.cfg.AdminEmail == "" {
		return nil
	}

	ident, err := app.authService.EnsureAdmin(ctx, app.cfg.AdminEmail, app.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to ensure admin identity: %w", err)
	}
	if ident.Role != domain.RoleAdmin {
		app.logger.Warn("configured admin email belongs to a non-admin identity", "identity_id", ident.ID)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.authService,
		app.metrics,
		app.logger,
	)
	router.RegisterLimiter = app.registerLimiter
	router.LoginLimiter = app.loginLimiter
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
