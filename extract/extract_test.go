package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"webintel/scraper"

	"go.uber.org/zap"
)

type fakeChat struct {
	lastPrompt string
	lastSystem string
	lastModel  string
	calls      int
	err        error
}

func (f *fakeChat) Chat(ctx context.Context, prompt, systemPrompt, model string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastSystem = systemPrompt
	f.lastModel = model
	if f.err != nil {
		return "", f.err
	}
	return "summary of content", nil
}

func TestFromContentTruncatesLongInput(t *testing.T) {
	chat := &fakeChat{}
	extractor := New(zap.NewNop(), chat)

	content := strings.Repeat("x", 15000)
	if _, err := extractor.FromContent(context.Background(), content, "m"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := strings.TrimPrefix(chat.lastPrompt, "Content to analyze:\n\n")
	if !strings.HasSuffix(sent, "\n[truncated]") {
		t.Error("expected truncation marker on long input")
	}
	body := strings.TrimSuffix(sent, "\n[truncated]")
	if len(body) != 12000 {
		t.Errorf("expected content truncated to 12000 chars, got %d", len(body))
	}
}

func TestFromContentShortInputNotTruncated(t *testing.T) {
	chat := &fakeChat{}
	extractor := New(zap.NewNop(), chat)

	if _, err := extractor.FromContent(context.Background(), "short text", "m"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(chat.lastPrompt, "[truncated]") {
		t.Error("short input must not carry the truncation marker")
	}
}

func TestFromPagesCombinesWithSourceHeaders(t *testing.T) {
	chat := &fakeChat{}
	extractor := New(zap.NewNop(), chat)

	pages := []scraper.Page{
		{URL: "https://example.com/one", Content: "first page text"},
		{URL: "https://example.com/two", Content: "second page text"},
	}
	summary, err := extractor.FromPages(context.Background(), pages, "model-x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "summary of content" {
		t.Errorf("unexpected summary: %q", summary)
	}
	if chat.lastModel != "model-x" {
		t.Errorf("model not forwarded: %q", chat.lastModel)
	}
	for i, page := range pages {
		header := fmt.Sprintf("=== SOURCE %d: %s ===", i+1, page.URL)
		if !strings.Contains(chat.lastPrompt, header) {
			t.Errorf("missing header %q", header)
		}
		if !strings.Contains(chat.lastPrompt, page.Content) {
			t.Errorf("missing content of %s", page.URL)
		}
	}
	if !strings.Contains(chat.lastSystem, "Extract key information") {
		t.Error("extraction system prompt not sent")
	}
}

func TestFromPagesCapsPerSourceContribution(t *testing.T) {
	chat := &fakeChat{}
	extractor := New(zap.NewNop(), chat)

	pages := []scraper.Page{
		{URL: "https://example.com/long", Content: strings.Repeat("q", 6000)},
	}
	if _, err := extractor.FromPages(context.Background(), pages, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := strings.Count(chat.lastPrompt, "q"); n != 4000 {
		t.Errorf("expected 4000 chars from the source, got %d", n)
	}
}

func TestFromPagesEmptyInputs(t *testing.T) {
	chat := &fakeChat{}
	extractor := New(zap.NewNop(), chat)

	summary, err := extractor.FromPages(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "No content to analyze" {
		t.Errorf("unexpected summary for no pages: %q", summary)
	}
	if chat.calls != 0 {
		t.Error("LLM must not be called for empty input")
	}

	summary, err = extractor.FromPages(context.Background(), []scraper.Page{{URL: "u", Content: ""}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "No content extracted from URLs" {
		t.Errorf("unexpected summary for blank pages: %q", summary)
	}
	if chat.calls != 0 {
		t.Error("LLM must not be called when every page is blank")
	}
}

func TestFromContentPropagatesChatError(t *testing.T) {
	chat := &fakeChat{err: errors.New("provider down")}
	extractor := New(zap.NewNop(), chat)

	if _, err := extractor.FromContent(context.Background(), "text", ""); err == nil {
		t.Fatal("expected error from failing chat client")
	}
}
