package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"webintel/config"
	"webintel/relevance"
	"webintel/scraper"
	"webintel/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Searcher resolves queries into result URLs.
type Searcher interface {
	Search(ctx context.Context, queries []string, maxResults int, deduplicate bool) ([]string, error)
}

// PageScraper fetches and extracts page text.
type PageScraper interface {
	Scrape(ctx context.Context, urls []string) ([]scraper.Page, error)
}

// Summarizer digests scraped pages into a summary.
type Summarizer interface {
	FromPages(ctx context.Context, pages []scraper.Page, model string) (string, error)
}

// ResultSaver persists one record per request.
type ResultSaver interface {
	Save(record storage.ResultRecord) error
}

type HandlerConfig struct {
	Searcher     Searcher
	Scraper      PageScraper
	Summarizer   Summarizer
	Store        ResultSaver
	Catalog      *config.ModelCatalog
	Provider     string
	DefaultModel string
}

// Handler sequences search, scrape and summarize for the HTTP surface.
type Handler struct {
	logger       *zap.Logger
	searcher     Searcher
	scraper      PageScraper
	summarizer   Summarizer
	store        ResultSaver
	catalog      *config.ModelCatalog
	provider     string
	defaultModel string
}

func NewHandler(logger *zap.Logger, cfg HandlerConfig) *Handler {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = &config.ModelCatalog{}
	}
	return &Handler{
		logger:       logger,
		searcher:     cfg.Searcher,
		scraper:      cfg.Scraper,
		summarizer:   cfg.Summarizer,
		store:        cfg.Store,
		catalog:      catalog,
		provider:     cfg.Provider,
		defaultModel: cfg.DefaultModel,
	}
}

// Extract scrapes the request URLs and summarizes their content.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start := time.Now()
	logger := h.logger.With(zap.String("request_id", uuid.NewString()))

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if len(req.URLs) < 1 || len(req.URLs) > 10 {
		writeError(w, http.StatusBadRequest, "urls must contain between 1 and 10 entries")
		return
	}
	model, ok := h.resolveModel(w, req.Model)
	if !ok {
		return
	}

	logger.Info("extract request", zap.Int("urls", len(req.URLs)))

	// The pipeline runs to completion even if the client goes away, so
	// the request context is deliberately not used downstream.
	ctx := context.Background()

	pages, err := h.scraper.Scrape(ctx, req.URLs)
	if err != nil {
		logger.Error("scrape failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summary, err := h.summarizer.FromPages(ctx, pages, model)
	if err != nil {
		logger.Error("summarization failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	elapsed := roundSeconds(time.Since(start))
	record := storage.ResultRecord{
		Type:    storage.RecordTypeExtract,
		URLs:    req.URLs,
		Summary: summary,
		Model:   model,
		Time:    elapsed,
	}
	if err := h.store.Save(record); err != nil {
		logger.Error("failed to persist result", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		URLsProcessed:  len(pages),
		URLs:           req.URLs,
		Summary:        summary,
		ModelUsed:      model,
		ProcessingTime: elapsed,
	})
}

// SearchAndExtract finds pages for a query, then runs the same
// scrape-and-summarize pipeline over them.
func (h *Handler) SearchAndExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start := time.Now()
	logger := h.logger.With(zap.String("request_id", uuid.NewString()))

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if len(strings.TrimSpace(req.Query)) < 3 {
		writeError(w, http.StatusBadRequest, "query must be at least 3 characters")
		return
	}
	maxURLs := req.MaxURLs
	if maxURLs == 0 {
		maxURLs = 3
	}
	if maxURLs < 1 || maxURLs > 10 {
		writeError(w, http.StatusBadRequest, "max_urls must be between 1 and 10")
		return
	}
	model, ok := h.resolveModel(w, req.Model)
	if !ok {
		return
	}

	logger.Info("search request",
		zap.String("query", req.Query),
		zap.Int("max_urls", maxURLs))

	ctx := context.Background()

	urls, err := h.searcher.Search(ctx, []string{req.Query}, maxURLs, true)
	if err != nil {
		logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if len(urls) == 0 {
		logger.Info("no search results", zap.String("query", req.Query))
		writeJSON(w, http.StatusOK, ExtractResponse{
			URLsProcessed:  0,
			URLs:           []string{},
			Summary:        "No search results found",
			ModelUsed:      model,
			ProcessingTime: roundSeconds(time.Since(start)),
		})
		return
	}

	pages, err := h.scraper.Scrape(ctx, urls)
	if err != nil {
		logger.Error("scrape failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rankByRelevance(req.Query, pages)

	summary, err := h.summarizer.FromPages(ctx, pages, model)
	if err != nil {
		logger.Error("summarization failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	elapsed := roundSeconds(time.Since(start))
	record := storage.ResultRecord{
		Type:    storage.RecordTypeSearch,
		Query:   req.Query,
		URLs:    urls,
		Summary: summary,
		Model:   model,
		Time:    elapsed,
	}
	if err := h.store.Save(record); err != nil {
		logger.Error("failed to persist result", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		URLsProcessed:  len(pages),
		URLs:           urls,
		Summary:        summary,
		ModelUsed:      model,
		ProcessingTime: elapsed,
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: Version})
}

// Root serves the static service descriptor.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Web Intelligence API",
		"version": Version,
		"endpoints": map[string]string{
			"health":  "/api/health",
			"extract": "/api/extract (POST)",
			"search":  "/api/search (POST)",
		},
	})
}

// resolveModel applies the default model and enforces the catalog. A
// false return means the response has already been written.
func (h *Handler) resolveModel(w http.ResponseWriter, requested string) (string, bool) {
	if requested == "" {
		return h.defaultModel, true
	}
	if !h.catalog.Allows(h.provider, requested) {
		writeError(w, http.StatusBadRequest, "model "+requested+" is not available for provider "+h.provider)
		return "", false
	}
	return requested, true
}

// rankByRelevance orders pages so the most query-relevant content is
// combined first. Nothing is dropped.
func rankByRelevance(query string, pages []scraper.Page) {
	scorer := relevance.NewScorer(query)
	scores := make(map[string]float64, len(pages))
	for _, page := range pages {
		scores[page.URL] = scorer.Score(page.Content)
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return scores[pages[i].URL] > scores[pages[j].URL]
	})
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
