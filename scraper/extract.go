package scraper

import (
	"bytes"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Extractor turns raw page HTML into readable text: trafilatura first,
// readability as fallback, markdown rendering of the content node when
// possible.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract returns the readable content of a page, or "" when nothing
// useful could be pulled out.
func (e *Extractor) Extract(body []byte, pageURL string) string {
	cleaned := e.cleanHTML(body)

	if content := e.extractWithTrafilatura(cleaned, pageURL); content != "" {
		return content
	}
	if content := e.extractWithReadability(cleaned, pageURL); content != "" {
		return content
	}
	return ""
}

func (e *Extractor) extractWithTrafilatura(body []byte, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		e.logger.Error("trafilatura: failed to parse URL", zap.Error(err))
		return ""
	}

	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL: parsedURL,
	})
	if err != nil {
		e.logger.Debug("trafilatura: extraction failed",
			zap.String("url", pageURL),
			zap.Error(err))
		return ""
	}

	textContent := strings.TrimSpace(result.ContentText)
	if textContent == "" {
		return ""
	}

	e.logger.Debug("trafilatura extraction",
		zap.String("url", pageURL),
		zap.String("title", result.Metadata.Title),
		zap.Int("text_length", len(textContent)))

	// Markdown keeps headings and lists, which reads better for the LLM
	// than flattened text. Fall back to plain text when rendering fails.
	if result.ContentNode != nil {
		if nodeHTML, err := renderNodeToString(result.ContentNode); err == nil {
			if markdown, err := htmltomarkdown.ConvertString(nodeHTML); err == nil {
				if md := strings.TrimSpace(markdown); md != "" {
					return md
				}
			}
		}
	}
	return textContent
}

func (e *Extractor) extractWithReadability(body []byte, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		e.logger.Error("readability: failed to parse URL", zap.Error(err))
		return ""
	}

	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(body), parsedURL)
	if err != nil {
		e.logger.Debug("readability: extraction failed",
			zap.String("url", pageURL),
			zap.Error(err))
		return ""
	}

	textContent := strings.TrimSpace(article.TextContent)
	e.logger.Debug("readability extraction",
		zap.String("url", pageURL),
		zap.String("title", article.Title),
		zap.Int("text_length", len(textContent)))
	return textContent
}

// cleanHTML strips elements that never carry readable content. The
// original bytes are returned when the document cannot be reparsed.
func (e *Extractor) cleanHTML(body []byte) []byte {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("script, style, noscript, iframe, svg").Remove()

	rendered, err := doc.Html()
	if err != nil {
		return body
	}
	return []byte(rendered)
}

func renderNodeToString(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
