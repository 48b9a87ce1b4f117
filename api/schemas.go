package api

// Version of the HTTP API surface.
const Version = "1.0.0"

type ExtractRequest struct {
	URLs  []string `json:"urls"`
	Model string   `json:"model,omitempty"`
}

type SearchRequest struct {
	Query   string `json:"query"`
	MaxURLs int    `json:"max_urls,omitempty"`
	Model   string `json:"model,omitempty"`
}

type ExtractResponse struct {
	URLsProcessed  int      `json:"urls_processed"`
	URLs           []string `json:"urls"`
	Summary        string   `json:"summary"`
	ModelUsed      string   `json:"model_used"`
	ProcessingTime float64  `json:"processing_time"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the only error shape clients ever see.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
