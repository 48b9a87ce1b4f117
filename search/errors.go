package search

// RateLimitError signals a short-term rate limit from the search API.
// Pagination for the current query stops early; other queries proceed.
type RateLimitError struct {
	Reason string
}

func (e *RateLimitError) Error() string {
	return "search rate limit exceeded: " + e.Reason
}

// QuotaExceededError signals the daily API quota is spent. It is fatal
// for the whole multi-query search, not just the current query.
type QuotaExceededError struct {
	Reason string
}

func (e *QuotaExceededError) Error() string {
	return "search API quota exceeded: " + e.Reason
}
