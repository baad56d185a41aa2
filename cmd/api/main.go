package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sketles/Takopi-sub003/internal/adapter/cache"
	"github.com/Sketles/Takopi-sub003/internal/adapter/repo"
	"github.com/Sketles/Takopi-sub003/internal/generation"
	"github.com/Sketles/Takopi-sub003/internal/http/handlers"
	"github.com/Sketles/Takopi-sub003/internal/http/httpapi"
	"github.com/Sketles/Takopi-sub003/internal/infra"
	"github.com/Sketles/Takopi-sub003/internal/providers/meshy"
	"github.com/Sketles/Takopi-sub003/internal/relay"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	tasks := repo.NewTaskRepository(runner)

	provider := meshy.NewClient(meshy.Options{
		APIKey:         cfg.ProviderAPIKey,
		BaseURL:        cfg.ProviderBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if !provider.HasCredentials() {
		logger.Warn().Msg("PROVIDER_API_KEY is empty; submissions will fail")
	}
	dispatcher := generation.NewDispatcher(provider, tasks, logger,
		generation.WithRefinePreviewCheck(cfg.RefineRequirePreview))

	reconcilerOpts := []generation.ReconcilerOption{}
	rdb, err := infra.NewRedisClient(ctx, cfg)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("redis unavailable; webhook duplicate suppression disabled")
	case rdb != nil:
		defer rdb.Close()
		reconcilerOpts = append(reconcilerOpts, generation.WithDeliveryLog(cache.NewDeliveryLog(rdb, cfg.WebhookDedupTTL)))
	}
	if len(cfg.WebhookSecrets) == 0 {
		logger.Warn().Msg("WEBHOOK_SECRET is empty; webhook signatures are NOT verified")
	}
	reconciler := generation.NewReconciler(tasks, generation.NewVerifier(cfg.WebhookSecrets), logger, reconcilerOpts...)

	assets := relay.New(relay.Options{
		AllowedHosts: cfg.AssetHostAllowlist,
		Timeout:      cfg.RelayTimeout,
		Logger:       logger,
	})

	app := &handlers.App{
		Tasks:           dispatcher,
		Webhooks:        reconciler,
		Assets:          assets,
		DB:              dbpool,
		Logger:          logger,
		SignatureHeader: cfg.WebhookSignatureHeader,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
	})

	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		logger.Info().Strs("asset_hosts", cfg.AssetHostAllowlist).Bool("refine_requires_preview", cfg.RefineRequirePreview).Msg("starting api")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
