package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Browser holds the chromedp allocator options shared by all sessions.
type Browser struct {
	logger  *zap.Logger
	options []chromedp.ExecAllocatorOption
}

func NewBrowser(logger *zap.Logger, headless bool) *Browser {
	return &Browser{
		logger: logger,
		options: append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.DisableGPU,
			chromedp.NoSandbox,
			chromedp.Flag("headless", headless),
			chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			chromedp.Flag("accept-language", "en-US,en;q=0.9"),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("exclude-switches", "enable-automation"),
			chromedp.Flag("disable-extensions", ""),
		),
	}
}

// Session is one running browser instance. Each scraped URL gets its own
// tab; the instance is shared across the URLs of a single Scrape call.
type Session struct {
	logger     *zap.Logger
	browserCtx context.Context
	timeout    time.Duration
	cancel     func()
}

func (b *Browser) NewSession(ctx context.Context, timeout time.Duration) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.options...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		browserCancel()
		allocCancel()
	}

	// Starts the browser process eagerly so a broken environment fails
	// here instead of on the first URL.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{
		logger:     b.logger,
		browserCtx: browserCtx,
		timeout:    timeout,
		cancel:     cancel,
	}, nil
}

func (s *Session) Close() {
	s.cancel()
}

// FetchHTML navigates a fresh tab to the URL and returns the rendered DOM.
// The per-URL timeout bounds navigation and serialization together.
func (s *Session) FetchHTML(pageURL string) ([]byte, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	defer tabCancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(tabCtx, s.timeout)
	defer timeoutCancel()

	var dom string
	err := chromedp.Run(timeoutCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
		}),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &dom),
	)
	if err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	s.logger.Debug("page rendered",
		zap.String("url", pageURL),
		zap.Int("dom_length", len(dom)))
	return []byte(dom), nil
}
