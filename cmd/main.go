package main

import (
	"log"

	"webintel/api"
	"webintel/config"
	"webintel/extract"
	"webintel/llm"
	"webintel/pkg/logging"
	"webintel/scraper"
	"webintel/search"
	"webintel/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// =========
	// Config
	// =========
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	catalog, err := config.LoadModelCatalog(cfg.ModelCatalogPath)
	if err != nil {
		log.Fatalf("Failed to load model catalog: %v", err)
	}

	// =========
	// Logging
	// =========
	logger, err := logging.New(logging.Options{
		Dir:   cfg.LogDir,
		Level: zapcore.DebugLevel,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// =========
	// Search client
	// =========
	searchClient := search.NewClient(logger, search.Options{
		APIKey:         cfg.SearchAPIKey,
		EngineID:       cfg.SearchEngineID,
		MaxRetries:     cfg.MaxRetries,
		RetryDelayBase: cfg.RetryDelayBase,
		RequestTimeout: cfg.RequestTimeout,
	})

	// =========
	// Scraper
	// =========
	pageScraper := scraper.New(logger, cfg.HeadlessMode, cfg.ScrapeTimeout)

	// =========
	// LLM client
	// =========
	llmClient, err := llm.NewClient(logger, llm.Options{
		Provider:     cfg.LLMProvider,
		APIKey:       providerKey(cfg),
		DefaultModel: cfg.DefaultModel(),
	})
	if err != nil {
		logger.Fatal("failed to create LLM client", zap.Error(err))
	}
	extractor := extract.New(logger, llmClient)

	// =========
	// Result store
	// =========
	resultStore, err := storage.NewResultStore(cfg.ResultsDir, logger)
	if err != nil {
		logger.Fatal("failed to create result store", zap.Error(err))
	}

	// =========
	// HTTP server
	// =========
	handler := api.NewHandler(logger, api.HandlerConfig{
		Searcher:     searchClient,
		Scraper:      pageScraper,
		Summarizer:   extractor,
		Store:        resultStore,
		Catalog:      catalog,
		Provider:     cfg.LLMProvider,
		DefaultModel: cfg.DefaultModel(),
	})
	server := api.NewServer(logger, cfg.APIHost, cfg.APIPort, handler)
	if err := server.Start(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func providerKey(cfg *config.Config) string {
	if cfg.LLMProvider == config.ProviderOpenRouter {
		return cfg.OpenRouterAPIKey
	}
	return cfg.GroqAPIKey
}
