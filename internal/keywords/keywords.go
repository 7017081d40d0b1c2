// Package keywords extracts normalized noun keywords from item titles.
package keywords

import (
	"strings"
	"unicode"

	"github.com/tsawler/prose/v3"
)

// Extractor produces the bag of candidate keywords for one title: normalized
// nouns with generic stop-terms removed. It is a pure function of its input
// and safe for concurrent use.
type Extractor struct{}

// New creates a keyword extractor.
func New() *Extractor {
	return &Extractor{}
}

// stopTerms are generic nouns that say nothing about a topic.
var stopTerms = map[string]bool{
	"news": true, "report": true, "reports": true, "update": true,
	"updates": true, "story": true, "stories": true, "article": true,
	"articles": true, "today": true, "yesterday": true, "tomorrow": true,
	"week": true, "month": true, "year": true, "day": true, "days": true,
	"time": true, "times": true, "thing": true, "things": true,
	"people": true, "man": true, "woman": true, "way": true,
	"breaking": true, "live": true, "exclusive": true, "opinion": true,
	"analysis": true, "video": true, "photos": true,
}

// Keywords returns the distinct normalized noun keywords of text.
// POS tagging failures degrade to an empty set rather than an error: a title
// the tagger cannot parse simply contributes no keywords.
func (e *Extractor) Keywords(text string) []string {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, tok := range doc.Tokens() {
		if !strings.HasPrefix(tok.Tag, "NN") {
			continue
		}
		word := normalize(tok.Text)
		if word == "" || stopTerms[word] || seen[word] {
			continue
		}
		seen[word] = true
		result = append(result, word)
	}
	return result
}

// normalize lowercases a token and strips non-letter/digit runes.
// Tokens shorter than two runes after normalization are dropped.
func normalize(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(token) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	word := b.String()
	if len([]rune(word)) < 2 {
		return ""
	}
	return word
}
