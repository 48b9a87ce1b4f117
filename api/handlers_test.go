package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"webintel/config"
	"webintel/scraper"
	"webintel/search"
	"webintel/storage"

	"go.uber.org/zap"
)

type fakeSearcher struct {
	urls  []string
	err   error
	calls int
}

func (f *fakeSearcher) Search(ctx context.Context, queries []string, maxResults int, deduplicate bool) ([]string, error) {
	f.calls++
	return f.urls, f.err
}

type fakeScraper struct {
	pages []scraper.Page
	err   error
	calls int
}

func (f *fakeScraper) Scrape(ctx context.Context, urls []string) ([]scraper.Page, error) {
	f.calls++
	return f.pages, f.err
}

type fakeSummarizer struct {
	summary   string
	err       error
	calls     int
	lastPages []scraper.Page
	lastModel string
}

func (f *fakeSummarizer) FromPages(ctx context.Context, pages []scraper.Page, model string) (string, error) {
	f.calls++
	f.lastPages = pages
	f.lastModel = model
	return f.summary, f.err
}

type testEnv struct {
	handler    *Handler
	searcher   *fakeSearcher
	scraper    *fakeScraper
	summarizer *fakeSummarizer
	resultsDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewResultStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	searcher := &fakeSearcher{}
	pageScraper := &fakeScraper{}
	summarizer := &fakeSummarizer{summary: "a summary"}

	handler := NewHandler(zap.NewNop(), HandlerConfig{
		Searcher:     searcher,
		Scraper:      pageScraper,
		Summarizer:   summarizer,
		Store:        store,
		Provider:     config.ProviderGroq,
		DefaultModel: "groq/compound-mini",
	})
	return &testEnv{
		handler:    handler,
		searcher:   searcher,
		scraper:    pageScraper,
		summarizer: summarizer,
		resultsDir: dir,
	}
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func readSingleRecord(t *testing.T, dir string) storage.ResultRecord {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read results dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 result record, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}
	var record storage.ResultRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("invalid record JSON: %v", err)
	}
	return record
}

func TestExtractHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.scraper.pages = []scraper.Page{
		{URL: "https://example.com/a", Content: "content a"},
	}

	rec := postJSON(t, env.handler.Extract, "/api/extract", ExtractRequest{
		URLs: []string{"https://example.com/a", "https://example.com/b"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse[ExtractResponse](t, rec)
	if resp.URLsProcessed != 1 {
		t.Errorf("expected 1 processed url, got %d", resp.URLsProcessed)
	}
	if len(resp.URLs) != 2 {
		t.Errorf("expected the original url list, got %v", resp.URLs)
	}
	if resp.Summary != "a summary" {
		t.Errorf("unexpected summary: %q", resp.Summary)
	}
	if resp.ModelUsed != "groq/compound-mini" {
		t.Errorf("expected default model, got %q", resp.ModelUsed)
	}
	if resp.ProcessingTime < 0 {
		t.Errorf("negative processing time: %v", resp.ProcessingTime)
	}

	// The persisted record carries exactly the response's urls and summary.
	record := readSingleRecord(t, env.resultsDir)
	if record.Type != storage.RecordTypeExtract {
		t.Errorf("expected extract record, got %q", record.Type)
	}
	if record.Summary != resp.Summary {
		t.Errorf("record summary %q != response summary %q", record.Summary, resp.Summary)
	}
	if len(record.URLs) != len(resp.URLs) {
		t.Fatalf("record urls %v != response urls %v", record.URLs, resp.URLs)
	}
	for i := range record.URLs {
		if record.URLs[i] != resp.URLs[i] {
			t.Errorf("record url %q != response url %q", record.URLs[i], resp.URLs[i])
		}
	}
}

func TestExtractValidation(t *testing.T) {
	testCases := []struct {
		name string
		urls []string
	}{
		{"NoURLs", nil},
		{"TooMany", make([]string, 11)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := postJSON(t, env.handler.Extract, "/api/extract", ExtractRequest{URLs: tc.urls})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			resp := decodeResponse[ErrorResponse](t, rec)
			if resp.Detail == "" {
				t.Error("expected error detail")
			}
			if env.scraper.calls != 0 {
				t.Error("scraper must not run on invalid input")
			}
		})
	}
}

func TestExtractScrapeFailureBecomes500(t *testing.T) {
	env := newTestEnv(t)
	env.scraper.err = errors.New("browser exploded")

	rec := postJSON(t, env.handler.Extract, "/api/extract", ExtractRequest{
		URLs: []string{"https://example.com/a"},
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	resp := decodeResponse[ErrorResponse](t, rec)
	if resp.Detail != "browser exploded" {
		t.Errorf("expected collaborator message as detail, got %q", resp.Detail)
	}
}

func TestSearchNoResultsShortCircuits(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.urls = nil

	rec := postJSON(t, env.handler.SearchAndExtract, "/api/search", SearchRequest{
		Query: "nothing findable",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse[ExtractResponse](t, rec)
	if resp.Summary != "No search results found" {
		t.Errorf("unexpected summary: %q", resp.Summary)
	}
	if resp.URLsProcessed != 0 || len(resp.URLs) != 0 {
		t.Errorf("expected empty result shape, got %+v", resp)
	}
	if resp.ProcessingTime < 0 {
		t.Errorf("negative processing time: %v", resp.ProcessingTime)
	}
	if env.scraper.calls != 0 {
		t.Error("scrape must not run when search is empty")
	}
	if env.summarizer.calls != 0 {
		t.Error("summarize must not run when search is empty")
	}
	entries, _ := os.ReadDir(env.resultsDir)
	if len(entries) != 0 {
		t.Error("no record should be persisted for the zero-result path")
	}
}

func TestSearchHappyPathPersistsRecord(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.urls = []string{"https://example.com/hit"}
	env.scraper.pages = []scraper.Page{
		{URL: "https://example.com/hit", Content: "flood coverage"},
	}

	rec := postJSON(t, env.handler.SearchAndExtract, "/api/search", SearchRequest{
		Query:   "flood coverage",
		MaxURLs: 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse[ExtractResponse](t, rec)
	record := readSingleRecord(t, env.resultsDir)
	if record.Type != storage.RecordTypeSearch {
		t.Errorf("expected search record, got %q", record.Type)
	}
	if record.Query != "flood coverage" {
		t.Errorf("record missing query: %+v", record)
	}
	if record.Summary != resp.Summary || len(record.URLs) != len(resp.URLs) {
		t.Errorf("record %+v does not match response %+v", record, resp)
	}
}

func TestSearchRanksRelevantPagesFirst(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.urls = []string{"https://example.com/off", "https://example.com/on"}
	env.scraper.pages = []scraper.Page{
		{URL: "https://example.com/off", Content: "recipes for banana bread"},
		{URL: "https://example.com/on", Content: "monsoon flooding damaged the levee"},
	}

	rec := postJSON(t, env.handler.SearchAndExtract, "/api/search", SearchRequest{
		Query: "monsoon flooding",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(env.summarizer.lastPages) != 2 {
		t.Fatalf("expected both pages summarized, got %d", len(env.summarizer.lastPages))
	}
	if env.summarizer.lastPages[0].URL != "https://example.com/on" {
		t.Errorf("expected the on-topic page first, got %s", env.summarizer.lastPages[0].URL)
	}
}

func TestSearchValidation(t *testing.T) {
	testCases := []struct {
		name string
		req  SearchRequest
	}{
		{"ShortQuery", SearchRequest{Query: "ab"}},
		{"BlankQuery", SearchRequest{Query: "   "}},
		{"MaxURLsTooHigh", SearchRequest{Query: "valid query", MaxURLs: 11}},
		{"MaxURLsNegative", SearchRequest{Query: "valid query", MaxURLs: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := postJSON(t, env.handler.SearchAndExtract, "/api/search", tc.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if env.searcher.calls != 0 {
				t.Error("search must not run on invalid input")
			}
		})
	}
}

func TestSearchQuotaFailureBecomes500(t *testing.T) {
	env := newTestEnv(t)
	env.searcher.err = &search.QuotaExceededError{Reason: "dailyLimitExceeded"}

	rec := postJSON(t, env.handler.SearchAndExtract, "/api/search", SearchRequest{
		Query: "flood news",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	resp := decodeResponse[ErrorResponse](t, rec)
	if resp.Detail == "" {
		t.Error("expected error detail")
	}
}

func TestModelCatalogRejection(t *testing.T) {
	dir := t.TempDir()
	store, _ := storage.NewResultStore(dir, zap.NewNop())
	handler := NewHandler(zap.NewNop(), HandlerConfig{
		Searcher:   &fakeSearcher{},
		Scraper:    &fakeScraper{},
		Summarizer: &fakeSummarizer{},
		Store:      store,
		Catalog: &config.ModelCatalog{
			Groq: []string{"groq/compound-mini"},
		},
		Provider:     config.ProviderGroq,
		DefaultModel: "groq/compound-mini",
	})

	rec := postJSON(t, handler.Extract, "/api/extract", ExtractRequest{
		URLs:  []string{"https://example.com/a"},
		Model: "not/in-catalog",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for uncataloged model, got %d", rec.Code)
	}

	rec = postJSON(t, handler.Extract, "/api/extract", ExtractRequest{
		URLs:  []string{"https://example.com/a"},
		Model: "groq/compound-mini",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for cataloged model, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	env.handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeResponse[HealthResponse](t, rec)
	if resp.Status != "healthy" || resp.Version != Version {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestExtractRejectsGet(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/extract", nil)
	rec := httptest.NewRecorder()
	env.handler.Extract(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRootDescriptor(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	env.handler.Root(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid descriptor: %v", err)
	}
	if body["name"] != "Web Intelligence API" {
		t.Errorf("unexpected descriptor: %v", body)
	}
}
