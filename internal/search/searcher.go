package search

import (
	"context"
	"sort"

	"github.com/agora-live/agora/pkg/models"
)

// ArticleSource is the store surface the searcher queries.
type ArticleSource interface {
	SearchTitles(ctx context.Context, query string, limit int) ([]models.Item, error)
}

// Searcher runs title search and re-ranks the matches by fusing relevance
// order with a popularity ordering over the same matched set.
type Searcher struct {
	articles ArticleSource
}

// New creates a searcher.
func New(articles ArticleSource) *Searcher {
	return &Searcher{articles: articles}
}

// Search returns at most limit articles for the query. Popularity never
// pulls in items the query did not match; it only reorders them.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]models.Item, error) {
	// Overfetch so the fusion has room to promote popular matches that
	// relevance alone would have cut.
	matched, err := s.articles.SearchTitles(ctx, query, limit*2)
	if err != nil {
		return nil, err
	}
	if len(matched) <= 1 {
		return matched, nil
	}

	byID := make(map[int64]models.Item, len(matched))
	relevance := make([]int64, 0, len(matched))
	for _, item := range matched {
		byID[item.ID] = item
		relevance = append(relevance, item.ID)
	}

	popularity := make([]int64, len(relevance))
	copy(popularity, relevance)
	sort.SliceStable(popularity, func(i, j int) bool {
		return byID[popularity[i]].ViewCount > byID[popularity[j]].ViewCount
	})

	fused := RRF(relevance, popularity)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	out := make([]models.Item, 0, len(fused))
	for _, scored := range fused {
		out = append(out, byID[scored.ID])
	}
	return out, nil
}
