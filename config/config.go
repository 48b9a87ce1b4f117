package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
)

type Config struct {
	// LLM
	LLMProvider            string
	GroqAPIKey             string
	OpenRouterAPIKey       string
	DefaultGroqModel       string
	DefaultOpenRouterModel string
	ModelCatalogPath       string

	// Scraping
	HeadlessMode  bool
	ScrapeTimeout time.Duration

	// Search
	SearchAPIKey   string
	SearchEngineID string
	MaxRetries     int
	RetryDelayBase time.Duration
	RequestTimeout time.Duration

	// Server
	APIHost    string
	APIPort    int
	ResultsDir string
	LogDir     string
}

func Load() (*Config, error) {
	appPort, err := strconv.Atoi(getEnv("API_PORT", "5001"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_PORT: %w", err)
	}
	scrapeTimeout, err := strconv.Atoi(getEnv("SCRAPE_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCRAPE_TIMEOUT: %w", err)
	}
	maxRetries, err := strconv.Atoi(getEnv("MAX_RETRIES", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_RETRIES: %w", err)
	}
	retryBase, err := strconv.ParseFloat(getEnv("RETRY_DELAY_BASE", "1.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_DELAY_BASE: %w", err)
	}
	requestTimeout, err := strconv.Atoi(getEnv("REQUEST_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	cfg := &Config{
		LLMProvider:            strings.ToLower(getEnv("LLM_PROVIDER", ProviderGroq)),
		GroqAPIKey:             os.Getenv("GROQ_API_KEY"),
		OpenRouterAPIKey:       os.Getenv("OPENROUTER_API_KEY"),
		DefaultGroqModel:       getEnv("DEFAULT_GROQ_MODEL", "groq/compound-mini"),
		DefaultOpenRouterModel: getEnv("DEFAULT_OPENROUTER_MODEL", "mistralai/mistral-7b-instruct:free"),
		ModelCatalogPath:       os.Getenv("MODEL_CATALOG_PATH"),
		HeadlessMode:           getEnv("HEADLESS_MODE", "true") == "true",
		ScrapeTimeout:          time.Duration(scrapeTimeout) * time.Second,
		SearchAPIKey:           os.Getenv("GOOGLE_SEARCH_API_KEY"),
		SearchEngineID:         os.Getenv("GOOGLE_SEARCH_ENGINE_ID"),
		MaxRetries:             maxRetries,
		RetryDelayBase:         time.Duration(retryBase * float64(time.Second)),
		RequestTimeout:         time.Duration(requestTimeout) * time.Second,
		APIHost:                getEnv("API_HOST", "127.0.0.1"),
		APIPort:                appPort,
		ResultsDir:             getEnv("RESULTS_DIR", "answers"),
		LogDir:                 getEnv("LOG_DIR", "logs"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required when LLM_PROVIDER is %q", ProviderGroq)
		}
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required when LLM_PROVIDER is %q", ProviderOpenRouter)
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}

// DefaultModel returns the default model for the configured provider.
func (c *Config) DefaultModel() string {
	if c.LLMProvider == ProviderOpenRouter {
		return c.DefaultOpenRouterModel
	}
	return c.DefaultGroqModel
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// ModelCatalog lists the models each provider is allowed to serve.
// An empty list for a provider means any model identifier is accepted.
type ModelCatalog struct {
	Groq       []string `yaml:"groq"`
	OpenRouter []string `yaml:"openrouter"`
}

// LoadModelCatalog reads the optional per-provider model list. An empty
// path yields an empty catalog.
func LoadModelCatalog(path string) (*ModelCatalog, error) {
	if path == "" {
		return &ModelCatalog{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model catalog: %w", err)
	}
	var catalog ModelCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	return &catalog, nil
}

// Allows reports whether the catalog permits the given model for a provider.
func (m *ModelCatalog) Allows(provider, model string) bool {
	var models []string
	switch provider {
	case ProviderGroq:
		models = m.Groq
	case ProviderOpenRouter:
		models = m.OpenRouter
	}
	if len(models) == 0 {
		return true
	}
	for _, candidate := range models {
		if candidate == model {
			return true
		}
	}
	return false
}
