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

	"marketplates/internal/captcha"
	"marketplates/internal/config"
	"marketplates/internal/database"
	"marketplates/internal/handler"
	"marketplates/internal/middleware"
	"marketplates/internal/repository"
	"marketplates/internal/router"
	"marketplates/internal/service"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	users, pinger, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokenService := service.NewTokenService(cfg)

	var verifier service.CaptchaVerifier
	if cfg.CaptchaEnabled() {
		verifier = captcha.NewVerifier(cfg.CaptchaSecret, cfg.CaptchaVerifyURL, cfg.CaptchaTimeout)
	} else {
		slog.Warn("captcha verification disabled, CAPTCHA_TOKEN_KEY is empty")
	}

	logger := slog.Default()
	authService := service.NewAuthService(users, tokenService, verifier, logger)
	csrfService := service.NewCSRFService(users, tokenService, cfg.CSRFKey, logger)
	userService := service.NewUserService(users, logger)

	if err := authService.SeedAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}

	appRouter := router.New(cfg,
		middleware.NewAuthMiddleware(authService),
		middleware.NewCSRFMiddleware(csrfService),
		router.Handlers{
			Auth:   handler.NewAuthHandler(authService, cfg.AccessTokenTTL, cfg.CookieSecure),
			CSRF:   handler.NewCSRFHandler(csrfService),
			User:   handler.NewUserHandler(userService),
			Health: handler.NewHealthHandler(pinger),
		},
	)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, cleanupFuncs: []func(){cleanup}}, nil
}

// Handler exposes the fully wired router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// openStore connects the configured user store. The returned pinger is nil
// for the memory driver.
func openStore(ctx context.Context, cfg *config.Config) (service.UserStore, handler.Pinger, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		slog.Info("database ready")
		return repository.NewPostgresUserRepository(db.Pool), db, db.Close, nil

	case config.DriverMongo:
		slog.Info("connecting to MongoDB", "database", cfg.MongoDatabase)
		mdb, err := database.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		closeMongo := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mdb.Close(closeCtx)
		}
		repo := repository.NewMongoUserRepository(mdb.Database)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeMongo()
			return nil, nil, nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}
		slog.Info("database ready")
		return repo, mdb, closeMongo, nil

	case config.DriverMemory:
		slog.Warn("using in-memory user store, data is lost on restart")
		return repository.NewMemoryUserRepository(), nil, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		a.cleanup()
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for _, fn := range a.cleanupFuncs {
		fn()
	}
}
