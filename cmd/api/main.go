package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio/internal/adapter/repo"
	"studio/internal/gallery"
	"studio/internal/generation"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/middleware"
	"studio/internal/notify"
	"studio/internal/observability"
	"studio/internal/queue"
	"studio/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		version, err := infra.Migrate(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		logger.Info().Uint("version", version).Msg("migrations applied")
	}

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	buckets, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init metrics")
	}
	defer func() { _ = shutdownMetrics(context.Background()) }()
	metrics, err := observability.NewMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create instruments")
	}

	var events notify.Subscriber = notify.Nop{}
	if cfg.RedisAddr != "" {
		bus, err := notify.NewRedisBus(ctx, cfg.RedisAddr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer bus.Close()
		events = bus
	} else {
		logger.Warn().Msg("REDIS_ADDR unset, event streams fall back to row polling")
	}

	generations := repo.NewGenerationRepository(runner)
	app := &handlers.App{
		Config: cfg,
		Logger: logger,
		Submitter: generation.NewSubmitter(generation.Deps{
			Generations: generations,
			Dispatcher:  queue.NewNotifier(runner),
			Metrics:     metrics,
			Logger:      logger,
		}),
		Generations: generations,
		Projector:   gallery.NewProjector(generations),
		Events:      events,
		Assets:      buckets.Assets,
		Ping:        dbpool.Ping,
	}

	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid TRUSTED_PROXIES")
	}
	opts := httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		TrustedProxies:  trusted,
		Metrics:         metricsHandler,
	}
	if cfg.StorageDriver == "filesystem" {
		opts.StaticDir = cfg.StoragePath
	}
	router := httpapi.NewRouter(app, opts)

	server := infra.NewHTTPServer(":"+cfg.Port, cfg, router, true)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
