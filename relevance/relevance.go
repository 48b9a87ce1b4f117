package relevance

import (
	"strings"

	"github.com/kljensen/snowball"
)

// Scorer measures how strongly a text matches a query, as the fraction of
// stemmed query keywords found among the text's stemmed words. Used to
// order scraped sources so the summarization budget favors on-topic pages.
type Scorer struct {
	keywords []string
}

func NewScorer(query string) *Scorer {
	words := tokenize(query)
	seen := make(map[string]struct{}, len(words))
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		stem := stemWord(word)
		if _, ok := seen[stem]; ok {
			continue
		}
		seen[stem] = struct{}{}
		keywords = append(keywords, stem)
	}
	return &Scorer{keywords: keywords}
}

// Score returns the fraction of query keywords present in the content,
// in [0, 1]. Zero keywords or empty content score zero.
func (s *Scorer) Score(content string) float64 {
	if len(s.keywords) == 0 || content == "" {
		return 0
	}

	contentStems := make(map[string]struct{})
	for _, word := range tokenize(content) {
		contentStems[stemWord(word)] = struct{}{}
	}

	found := 0
	for _, keyword := range s.keywords {
		if _, ok := contentStems[keyword]; ok {
			found++
		}
	}
	return float64(found) / float64(len(s.keywords))
}

func tokenize(text string) []string {
	text = strings.ToLower(text)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 2 {
			continue
		}
		words = append(words, field)
	}
	return words
}

func stemWord(word string) string {
	stem, err := snowball.Stem(word, "english", true)
	if err != nil {
		return word
	}
	return stem
}
