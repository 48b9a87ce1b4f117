package extract

import (
	"context"
	"fmt"
	"strings"

	"webintel/scraper"

	"go.uber.org/zap"
)

const (
	// Hard cap on the text sent to one summarization call.
	maxCombinedChars = 12000
	// Cap on what a single source page may contribute.
	maxPerSourceChars = 4000

	truncationMarker = "\n[truncated]"
)

const extractionPrompt = `Extract key information from the content below.

Provide:
1. A brief summary (2-3 sentences)
2. Key facts and findings (bullet points)
3. Any relevant locations, dates, or numbers mentioned

Be concise and factual.`

// ChatClient is the language-model collaborator.
type ChatClient interface {
	Chat(ctx context.Context, prompt, systemPrompt, model string) (string, error)
}

// Extractor combines scraped page text and asks the language model for a
// digest of it.
type Extractor struct {
	logger *zap.Logger
	chat   ChatClient
}

func New(logger *zap.Logger, chat ChatClient) *Extractor {
	return &Extractor{logger: logger, chat: chat}
}

// FromContent summarizes a single block of text, truncating it to the
// combined cap first.
func (e *Extractor) FromContent(ctx context.Context, content, model string) (string, error) {
	e.logger.Info("extracting", zap.Int("chars", len(content)))

	if runes := []rune(content); len(runes) > maxCombinedChars {
		content = string(runes[:maxCombinedChars]) + truncationMarker
	}

	result, err := e.chat.Chat(ctx, "Content to analyze:\n\n"+content, extractionPrompt, model)
	if err != nil {
		return "", fmt.Errorf("extraction failed: %w", err)
	}

	e.logger.Info("extraction complete", zap.Int("summary_chars", len(result)))
	return result, nil
}

// FromPages combines multiple scraped pages under per-source headers and
// summarizes the result. Empty inputs short-circuit without an LLM call.
func (e *Extractor) FromPages(ctx context.Context, pages []scraper.Page, model string) (string, error) {
	if len(pages) == 0 {
		return "No content to analyze", nil
	}

	var combined strings.Builder
	for i, page := range pages {
		if page.Content == "" {
			continue
		}
		content := page.Content
		if runes := []rune(content); len(runes) > maxPerSourceChars {
			content = string(runes[:maxPerSourceChars])
		}
		fmt.Fprintf(&combined, "\n\n=== SOURCE %d: %s ===\n%s", i+1, page.URL, content)
	}

	if combined.Len() == 0 {
		return "No content extracted from URLs", nil
	}
	return e.FromContent(ctx, combined.String(), model)
}
