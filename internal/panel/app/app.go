package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/solidhost/panel/internal/panel/http"
	"github.com/solidhost/panel/internal/panel/notify"
	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/internal/panel/store"
	"github.com/solidhost/panel/internal/panel/store/drivers/sqlite"
	"github.com/solidhost/panel/pkg/jwtx"
	"github.com/solidhost/panel/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the panel auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	codec    *jwtx.Codec
	notifier notify.Notifier

	// Services
	authService       *service.AuthService
	userService       *service.UserService
	roleService       *service.RoleService
	roleChangeService *service.RoleChangeService
	allowedIPService  *service.AllowedIPService
	auditService      *service.AuditService
	twoFactorService  *service.TwoFactorService
	housekeeper       *service.Housekeeper

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "panel-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initNotifier(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.codec = &jwtx.Codec{
		Secret: []byte(cfg.SecretKey),
		TTL:    cfg.TokenTTL,
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeper.Start()

	app.logger.Info("panel auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down panel auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeper.Stop()

	if err := app.notifier.Close(); err != nil {
		app.logger.Error("error closing notifier", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("panel auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initNotifier connects to Redis when configured, otherwise events are
// dropped silently via the no-op notifier.
func (app *Application) initNotifier() error {
	if app.cfg.RedisAddr == "" {
		app.logger.Info("no REDIS_ADDR configured, event publishing disabled")
		app.notifier = notify.Nop{}
		return nil
	}

	n, err := notify.NewRedisNotifier(context.Background(), app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect notifier: %w", err)
	}
	app.logger.Info("event publishing enabled", "redis_addr", app.cfg.RedisAddr)
	app.notifier = n
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:    app.db,
		Codec:    app.codec,
		Notifier: app.notifier,
	}
	app.userService = &service.UserService{Store: app.db}
	app.roleService = &service.RoleService{Store: app.db}
	app.roleChangeService = &service.RoleChangeService{
		Store:    app.db,
		Notifier: app.notifier,
	}
	app.allowedIPService = &service.AllowedIPService{Store: app.db}
	app.auditService = &service.AuditService{Store: app.db}
	app.twoFactorService = &service.TwoFactorService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
	}
	app.housekeeper = &service.Housekeeper{
		Store:     app.db,
		Retention: app.cfg.LogRetention,
		Interval:  app.cfg.HousekeepingInterval,
		Logger:    app.logger,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec,
		app.cfg.TrustProxyHeaders,
		app.cfg.SecureCookie,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.UserService = app.userService
	router.RoleService = app.roleService
	router.RoleChangeService = app.roleChangeService
	router.AllowedIPService = app.allowedIPService
	router.AuditService = app.auditService
	router.TwoFactorService = app.twoFactorService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
