package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

	// The API serves at most 10 results per request.
	maxPerRequest = 10
)

type Options struct {
	APIKey         string
	EngineID       string
	MaxRetries     int
	RetryDelayBase time.Duration
	RequestTimeout time.Duration
	PageDelay      time.Duration
	BaseURL        string
}

// Client retrieves result URLs from the Google Custom Search JSON API,
// handling pagination, retries with exponential backoff and rate limits.
type Client struct {
	httpClient     *http.Client
	logger         *zap.Logger
	apiKey         string
	engineID       string
	baseURL        string
	maxRetries     int
	retryDelayBase time.Duration
	pageDelay      time.Duration
}

func NewClient(logger *zap.Logger, opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}
	if opts.RetryDelayBase <= 0 {
		opts.RetryDelayBase = time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.PageDelay <= 0 {
		opts.PageDelay = 100 * time.Millisecond
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}

	return &Client{
		httpClient:     &http.Client{Timeout: opts.RequestTimeout},
		logger:         logger,
		apiKey:         opts.APIKey,
		engineID:       opts.EngineID,
		baseURL:        opts.BaseURL,
		maxRetries:     opts.MaxRetries,
		retryDelayBase: opts.RetryDelayBase,
		pageDelay:      opts.PageDelay,
	}
}

type apiResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

type apiErrorPayload struct {
	Error struct {
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Search resolves one or more queries into a flat, length-bounded list of
// result URLs. Deduplication is tracked across the whole call, so a URL
// returned for one query is not repeated for another.
//
// Blank queries are skipped with a warning. A quota-exceeded response
// aborts the entire call; every other per-query failure keeps whatever
// that query already collected and moves on.
func (c *Client) Search(ctx context.Context, queries []string, maxResults int, deduplicate bool) ([]string, error) {
	if len(queries) == 0 {
		c.logger.Warn("empty query list provided")
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = maxPerRequest
	}

	var allURLs []string
	seen := make(map[string]struct{})

	for _, query := range queries {
		if strings.TrimSpace(query) == "" {
			c.logger.Warn("skipping empty query")
			continue
		}

		urls, err := c.searchQuery(ctx, query, maxResults, deduplicate, seen)
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			c.logger.Error("search API quota exceeded, aborting search", zap.Error(err))
			return nil, err
		}
		if err != nil {
			c.logger.Error("search error for query",
				zap.String("query", query),
				zap.Int("urls_kept", len(urls)),
				zap.Error(err))
		}
		allURLs = append(allURLs, urls...)
	}

	c.logger.Info("search completed", zap.Int("total_urls", len(allURLs)))
	return allURLs, nil
}

// SearchSingle is a convenience wrapper for one query.
func (c *Client) SearchSingle(ctx context.Context, query string, maxResults int) ([]string, error) {
	return c.Search(ctx, []string{query}, maxResults, true)
}

// searchQuery paginates one query in batches of up to 10 results until
// maxResults URLs are collected or the API runs out of pages. A rate
// limit stops pagination early, keeping what was already collected.
func (c *Client) searchQuery(ctx context.Context, query string, maxResults int, deduplicate bool, seen map[string]struct{}) ([]string, error) {
	c.logger.Info("searching", zap.String("query", query), zap.Int("max_results", maxResults))

	// Each page yields at most 10 items, so start indexes past maxResults
	// cannot contribute anything; bounding on them also guarantees the
	// loop ends when deduplication eats entire pages.
	var urls []string
	for start := 1; start <= maxResults; start += maxPerRequest {
		batchSize := maxResults - len(urls)
		if batchSize > maxPerRequest {
			batchSize = maxPerRequest
		}

		page, err := c.fetchPage(ctx, query, batchSize, start)
		if err != nil {
			var rateErr *RateLimitError
			if errors.As(err, &rateErr) {
				c.logger.Warn("rate limited during pagination",
					zap.String("query", query),
					zap.Error(err))
				return urls, nil
			}
			return urls, err
		}

		if len(page.Items) == 0 {
			c.logger.Debug("no more results", zap.String("query", query))
			break
		}

		for _, item := range page.Items {
			if item.Link == "" {
				continue
			}
			if deduplicate {
				if _, ok := seen[item.Link]; ok {
					continue
				}
				seen[item.Link] = struct{}{}
			}
			urls = append(urls, item.Link)
			if len(urls) >= maxResults {
				break
			}
		}
		if len(urls) >= maxResults {
			break
		}

		// Breather between pagination calls to stay under the rate limit.
		time.Sleep(c.pageDelay)
	}

	c.logger.Info("query completed",
		zap.String("query", query),
		zap.Int("urls", len(urls)))
	return urls, nil
}

// fetchPage issues a single API request with retries. Non-2xx handling:
// 429 sleeps (Retry-After when present, exponential backoff otherwise) and
// retries; 403 is classified by the payload reason into quota-exceeded,
// rate-limit or plain forbidden; 400 is never retried.
func (c *Client) fetchPage(ctx context.Context, query string, numResults, startIndex int) (*apiResponse, error) {
	if numResults > maxPerRequest {
		numResults = maxPerRequest
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(numResults))
	params.Set("start", strconv.Itoa(startIndex))
	requestURL := c.baseURL + "?" + params.Encode()

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create search request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("search request error",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries),
				zap.Error(err))
			if attempt < c.maxRetries-1 {
				time.Sleep(c.backoff(attempt))
				continue
			}
			return nil, fmt.Errorf("search request failed: %w", err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			if attempt < c.maxRetries-1 {
				time.Sleep(c.backoff(attempt))
				continue
			}
			return nil, fmt.Errorf("failed to read search response: %w", readErr)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var result apiResponse
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("failed to decode search response: %w", err)
			}
			return &result, nil

		case http.StatusTooManyRequests:
			delay := c.backoff(attempt)
			if header := resp.Header.Get("Retry-After"); header != "" {
				if secs, err := strconv.Atoi(header); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			c.logger.Warn("rate limited, backing off",
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			time.Sleep(delay)
			continue

		case http.StatusForbidden:
			reason := forbiddenReason(body)
			switch {
			case strings.Contains(reason, "dailyLimitExceeded"),
				strings.Contains(reason, "quotaExceeded"):
				return nil, &QuotaExceededError{Reason: reason}
			case strings.Contains(reason, "rateLimitExceeded"):
				return nil, &RateLimitError{Reason: reason}
			default:
				return nil, fmt.Errorf("search API access forbidden: %s", string(body))
			}

		case http.StatusBadRequest:
			var payload apiErrorPayload
			message := string(body)
			if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
				message = payload.Error.Message
			}
			return nil, fmt.Errorf("bad search request: %s", message)

		default:
			c.logger.Warn("search request failed",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			if attempt < c.maxRetries-1 {
				time.Sleep(c.backoff(attempt))
				continue
			}
			return nil, fmt.Errorf("search request failed: %d - %s", resp.StatusCode, string(body))
		}
	}

	return nil, errors.New("search failed after all retries")
}

func (c *Client) backoff(attempt int) time.Duration {
	return c.retryDelayBase * time.Duration(1<<attempt)
}

func forbiddenReason(body []byte) string {
	var payload apiErrorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Error.Errors) == 0 {
		return ""
	}
	return payload.Error.Errors[0].Reason
}
