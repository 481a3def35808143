package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/adapter/repo"
	"studio/internal/conversation"
	"studio/internal/dispatch"
	"studio/internal/domain"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/inference"
	"studio/internal/infra"
	"studio/internal/infra/geoip"
	"studio/internal/jobs"
	"studio/internal/session"
	"studio/internal/storage"
	"studio/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	var businesses domain.BusinessReader
	var products domain.ProductReader
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: db connection failed")
		}
		defer pool.Close()
		businesses = repo.NewBusinessRepository(pool)
		products = repo.NewProductRepository(pool)
	} else {
		logger.Warn().Msg("api: DATABASE_URL not set, business context disabled")
	}

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	model, err := inference.NewClient(inference.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure inference client")
	}

	var jobClient *jobs.Client
	if cfg.JobStatusBaseURL != "" {
		jobClient, err = jobs.NewClient(jobs.Options{
			StatusBaseURL:      cfg.JobStatusBaseURL,
			CatalogAnalysisURL: cfg.CatalogAnalysisURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("api: failed to configure job client")
		}
	} else {
		logger.Warn().Msg("api: JOB_STATUS_BASE_URL not set, profile polling disabled")
	}

	templates := infra.BuildTemplateTable(cfg)
	sessions := session.NewRegistry()
	router := dispatch.NewRouter(templates, &http.Client{}, logger)
	ingestor := stream.NewIngestor(model, logger)

	managerOpts := conversation.Options{
		Sessions:   sessions,
		Templates:  templates,
		Ingestor:   ingestor,
		Router:     router,
		Uploader:   fileStore,
		Businesses: businesses,
		Products:   products,
		Logger:     logger,
	}
	if jobClient != nil {
		managerOpts.Jobs = jobClient
		managerOpts.Catalog = jobClient
	}
	manager := conversation.NewManager(managerOpts)

	countryLookup, err := newCountryLookup(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	}

	app := handlers.NewApp(manager, sessions, templates, fileStore, logger)
	handler := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       fileStore.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, handler)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func newCountryLookup(dbPath string) (func(string) (string, error), error) {
	resolver, err := geoip.NewResolver(dbPath)
	if err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, nil
	}
	return resolver.CountryCode, nil
}
