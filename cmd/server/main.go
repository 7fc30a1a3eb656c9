package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/networth-optimizer/web/internal/auth"
	"example.com/networth-optimizer/web/internal/config"
	"example.com/networth-optimizer/web/internal/database"
	"example.com/networth-optimizer/web/internal/handlers"
	"example.com/networth-optimizer/web/internal/identity"
	"example.com/networth-optimizer/web/internal/market"
	"example.com/networth-optimizer/web/internal/optimizer"
	"example.com/networth-optimizer/web/internal/profile"
	"example.com/networth-optimizer/web/internal/realtime"
	"example.com/networth-optimizer/web/internal/repository"
	"example.com/networth-optimizer/web/internal/server"
)

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]handlers.HealthCheck)

	sessions, closeSessions := openSessionStore(ctx, cfg, logger, checks)
	defer closeSessions()

	profiles, closeProfiles, err := openProfileStore(ctx, cfg, checks)
	if err != nil {
		logger.Error("failed to open profile store",
			slog.String("store", cfg.Storage.ProfileStore),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer closeProfiles()

	optimizerClient := optimizer.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	deps := server.Dependencies{
		Sessions:  sessions,
		Profiles:  profiles,
		Optimizer: optimizerClient,
		Identity:  identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.AnonKey, cfg.Identity.Timeout),

		HealthChecks: checks,
	}
	if cfg.Market.Enabled {
		deps.MarketHub = realtime.NewHub()
		deps.Poller = market.NewPoller(optimizerClient, deps.MarketHub, cfg.Market.Ticker, cfg.Market.PollInterval, logger)
		go deps.Poller.Run(ctx)
	}

	e, err := server.New(cfg, logger, deps)
	if err != nil {
		logger.Error("failed to build server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	httpServer := server.NewHTTPServer(cfg.Server, e)

	go func() {
		logger.Info("http server started",
			slog.String("addr", httpServer.Addr),
			slog.String("optimizer", optimizerClient.BaseURL()),
		)
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

// openSessionStore подключает Redis; без него сессии живут в памяти процесса.
func openSessionStore(ctx context.Context, cfg config.Config, logger *slog.Logger, checks map[string]handlers.HealthCheck) (auth.SessionStore, func()) {
	if cfg.Storage.RedisURL == "" {
		logger.Warn("REDIS_URL is not set, sessions are kept in memory")
		return repository.NewMemorySessionRepository(), func() {}
	}

	client, err := database.OpenRedis(ctx, cfg.Storage.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, sessions are kept in memory", slog.String("error", err.Error()))
		return repository.NewMemorySessionRepository(), func() {}
	}

	checks["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	return repository.NewRedisSessionRepository(client), func() {
		_ = client.Close()
	}
}

func openProfileStore(ctx context.Context, cfg config.Config, checks map[string]handlers.HealthCheck) (profile.Repository, func(), error) {
	switch cfg.Storage.ProfileStore {
	case config.ProfileStorePostgres:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		checks["postgres"] = db.Ping
		return repository.NewPostgresProfileRepository(db), db.Close, nil
	case config.ProfileStoreSQLite:
		db, err := database.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		checks["sqlite"] = db.PingContext
		return repository.NewSQLiteProfileRepository(db), func() {
			_ = db.Close()
		}, nil
	default:
		return repository.NewMemoryProfileRepository(), func() {}, nil
	}
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
