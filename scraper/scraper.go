package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MaxContentChars caps the extracted content kept per page.
const MaxContentChars = 10000

// Page is the extracted text of one successfully scraped URL.
type Page struct {
	URL       string    `json:"url"`
	Content   string    `json:"content"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Scraper renders pages in a headless browser and extracts their readable
// text. The browser session lives for the duration of one Scrape call.
type Scraper struct {
	logger    *zap.Logger
	browser   *Browser
	static    *StaticFetcher
	extractor *Extractor
	timeout   time.Duration
}

func New(logger *zap.Logger, headless bool, timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		logger:    logger,
		browser:   NewBrowser(logger, headless),
		static:    NewStaticFetcher(logger, timeout),
		extractor: NewExtractor(logger),
		timeout:   timeout,
	}
}

// Scrape fetches the given URLs sequentially. URLs that fail, time out or
// yield no content are dropped; one bad URL never aborts the others. The
// browser is torn down on return regardless of how many URLs succeeded.
func (s *Scraper) Scrape(ctx context.Context, urls []string) ([]Page, error) {
	s.logger.Info("scraping urls", zap.Int("count", len(urls)))

	session, err := s.browser.NewSession(ctx, s.timeout)
	if err != nil {
		s.logger.Error("browser session failed, falling back to static fetch", zap.Error(err))
		session = nil
	} else {
		defer session.Close()
	}

	var pages []Page
	for _, pageURL := range urls {
		body, err := s.fetch(session, pageURL)
		if err != nil {
			s.logger.Warn("fetch failed", zap.String("url", pageURL), zap.Error(err))
			continue
		}

		content := s.extractor.Extract(body, pageURL)
		if content == "" {
			s.logger.Warn("empty content", zap.String("url", pageURL))
			continue
		}

		pages = append(pages, Page{
			URL:       pageURL,
			Content:   truncateRunes(content, MaxContentChars),
			ScrapedAt: time.Now().UTC(),
		})
		s.logger.Debug("scraped",
			zap.String("url", pageURL),
			zap.Int("chars", len(content)))
	}

	s.logger.Info("scrape completed",
		zap.Int("scraped", len(pages)),
		zap.Int("requested", len(urls)))
	return pages, nil
}

// fetch renders the page in the browser session, dropping to a plain HTTP
// fetch when rendering fails or no session could be started.
func (s *Scraper) fetch(session *Session, pageURL string) ([]byte, error) {
	if session != nil {
		body, err := session.FetchHTML(pageURL)
		if err == nil {
			return body, nil
		}
		s.logger.Warn("browser render failed, trying static fetch",
			zap.String("url", pageURL),
			zap.Error(err))
	}
	return s.static.Fetch(pageURL)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
