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

	"github.com/redis/go-redis/v9"

	"leetcode-tracker/internal/config"
	"leetcode-tracker/internal/database"
	"leetcode-tracker/internal/handler"
	"leetcode-tracker/internal/middleware"
	"leetcode-tracker/internal/repository"
	"leetcode-tracker/internal/router"
	"leetcode-tracker/internal/service"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	userRepo := repository.NewUserRepository(db.Pool)
	slog.Info("database ready")

	cleanupFuncs := []func(){db.Close}

	tokens, err := service.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiration.Duration())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	var denylistPinger handler.PingFunc
	if cfg.RedisURL != "" {
		denylist, err := newDenylist(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, err
		}
		tokens.WithDenylist(denylist)
		denylistPinger = denylist.Ping
		cleanupFuncs = append(cleanupFuncs, func() {
			if err := denylist.Close(); err != nil {
				slog.Warn("closing redis client", "error", err)
			}
		})
		slog.Info("token revocation enabled")
	}

	hasher := service.NewPasswordHasher(service.DefaultBcryptCost, cfg.BcryptMaxConcurrency)
	authService, err := service.NewAuthService(userRepo, hasher, tokens)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	healthHandler := handler.NewHealthHandler(handler.PingFunc(db.Health), nil)
	if denylistPinger != nil {
		healthHandler = handler.NewHealthHandler(handler.PingFunc(db.Health), denylistPinger)
	}

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Health: healthHandler,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

func newDenylist(redisURL string) (*repository.TokenDenylist, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		// The URL may embed a password.
		return nil, errors.New("failed to parse REDIS_URL")
	}

	denylist := repository.NewTokenDenylist(redis.NewClient(options))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := denylist.Ping(ctx); err != nil {
		_ = denylist.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return denylist, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Drain in-flight requests before closing the pools they use.
	shutdownErr := a.server.Shutdown(ctx)

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
