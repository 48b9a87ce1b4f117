package scraper

import (
	"errors"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// StaticFetcher retrieves raw HTML over plain HTTP. It backs up the
// browser for pages that refuse to render headlessly.
type StaticFetcher struct {
	logger    *zap.Logger
	timeout   time.Duration
	userAgent string
}

func NewStaticFetcher(logger *zap.Logger, timeout time.Duration) *StaticFetcher {
	return &StaticFetcher{
		logger:    logger,
		timeout:   timeout,
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Fetch downloads a single page. The collector is per-call: nothing is
// shared or cached between requests.
func (f *StaticFetcher) Fetch(pageURL string) ([]byte, error) {
	collector := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.MaxDepth(1),
	)
	collector.SetRequestTimeout(f.timeout)

	var body []byte
	var fetchErr error
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, err
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}

	f.logger.Debug("static fetch completed",
		zap.String("url", pageURL),
		zap.Int("bytes", len(body)))
	return body, nil
}
