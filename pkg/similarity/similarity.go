// Package similarity provides text similarity utilities for near-duplicate
// article detection.
package similarity

import (
	"strings"

	"github.com/agora-live/agora/pkg/models"
)

// DedupeTitles drops articles whose titles are near-duplicates of an
// earlier article in the slice: syndicated stories that several sources
// publish under almost the same headline. Input order is preference order,
// the first of each duplicate group is kept.
func DedupeTitles(items []models.Item, threshold float64) []models.Item {
	if len(items) <= 1 {
		return items
	}

	termSets := make([]map[string]bool, len(items))
	for i, item := range items {
		termSets[i] = TitleTerms(item.Title)
	}

	dropped := make([]bool, len(items))
	result := make([]models.Item, 0, len(items))

	for i := range items {
		if dropped[i] {
			continue
		}
		result = append(result, items[i])

		for j := i + 1; j < len(items); j++ {
			if dropped[j] {
				continue
			}
			if JaccardSimilarity(termSets[i], termSets[j]) >= threshold {
				dropped[j] = true
			}
		}
	}
	return result
}

// TitleTerms tokenizes a title into a term set for similarity comparison.
func TitleTerms(title string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})

	terms := make(map[string]bool)
	for _, word := range words {
		if len(word) >= 3 && !titleStopWords[word] {
			terms[word] = true
		}
	}
	return terms
}

var titleStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "from": true, "with": true,
	"that": true, "this": true, "after": true, "over": true, "into": true,
	"amid": true, "says": true, "say": true, "said": true, "will": true,
	"are": true, "was": true, "has": true, "have": true, "its": true,
	"about": true, "more": true, "new": true, "how": true, "why": true,
	"what": true, "who": true, "when": true, "where": true,
}

// JaccardSimilarity is intersection over union of two term sets. Returns a
// value in [0, 1]; two empty sets count as identical.
func JaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for term := range a {
		if b[term] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
