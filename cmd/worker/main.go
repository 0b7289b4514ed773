package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio/internal/adapter/repo"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/notify"
	"studio/internal/observability"
	"studio/internal/providers/genai"
	"studio/internal/providers/image"
	videoprovider "studio/internal/providers/video"
	"studio/internal/queue"
	"studio/internal/storage"
	"studio/internal/worker"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	buckets, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	geminiAPIKey, err := credentials.NewStore(runner).ResolveGeminiAPIKey(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
	}
	geminiClient := genai.NewClient(genai.Options{
		APIKey:     geminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.ProviderTimeout},
		Logger:     &logger,
	})
	if geminiClient.Synthetic() {
		logger.Warn().Msg("worker: gemini api key missing, using synthetic asset generation")
	}

	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to init metrics")
	}
	defer func() { _ = shutdownMetrics(context.Background()) }()
	metrics, err := observability.NewMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to create instruments")
	}
	var metricsServer *infra.HTTPServer
	if cfg.WorkerMetricAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		metricsServer = infra.NewHTTPServer(cfg.WorkerMetricAddr, cfg, mux, false)
		go func() {
			logger.Info().Str("addr", cfg.WorkerMetricAddr).Msg("worker: metrics listening")
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("worker: metrics server failed")
			}
		}()
	}

	var events notify.Publisher = notify.Nop{}
	if cfg.RedisAddr != "" {
		bus, err := notify.NewRedisBus(ctx, cfg.RedisAddr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to connect redis")
		}
		defer bus.Close()
		events = bus
	}

	listener, err := queue.NewListener(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to listen for jobs")
	}
	go listener.Run(ctx)

	generations := repo.NewGenerationRepository(runner)

	reaper := worker.NewReaper(generations, events, metrics, logger, cfg.ReaperInterval, cfg.ReaperMaxAge)
	go reaper.Run(ctx)

	w := worker.New(worker.Deps{
		Generations: generations,
		Resources:   repo.NewResourceRepository(runner),
		Buckets:     buckets,
		Images: image.NewGeminiGenerator(geminiClient, image.Models{
			Basic: cfg.BasicImageModel,
			Pro:   cfg.ProImageModel,
		}),
		Videos:  videoprovider.NewGeminiGenerator(geminiClient, cfg.VideoModel),
		Events:  events,
		Metrics: metrics,
		Logger:  logger,
		Config: worker.Config{
			Concurrency:        cfg.WorkerConcurrency,
			PollInterval:       cfg.WorkerPollInterval,
			VideoPollInterval:  cfg.VideoPollInterval,
			VideoMaxWait:       cfg.VideoMaxWait,
			SourceMaxDimension: cfg.SourceMaxDimension,
		},
	})

	if err := w.Run(ctx, listener.Wake()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		cancel()
	}
	logger.Info().Msg("worker: stopped")
}
