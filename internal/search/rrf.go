// Package search ranks article search results by fusing title relevance
// with popularity.
package search

import "sort"

// ScoredID pairs an article id with a fused ranking score.
type ScoredID struct {
	Score float64
	ID    int64
}

// RRF fuses ranked id lists using Reciprocal Rank Fusion (k=60). Each input
// list must be ordered best first. The first list carries double weight:
// relevance should dominate, popularity only breaks near-ties.
//
// Returns a deduplicated list sorted by fused score descending; ties keep
// first-seen order, so the output is stable across runs.
func RRF(lists ...[]int64) []ScoredID {
	scores := make(map[int64]float64)
	var order []int64

	for listIdx, ids := range lists {
		weight := 1.0
		if listIdx == 0 {
			weight = 2.0
		}
		for rank, id := range ids {
			if _, exists := scores[id]; !exists {
				order = append(order, id)
			}
			scores[id] += weight / (60.0 + float64(rank) + 1)
		}
	}

	result := make([]ScoredID, 0, len(scores))
	for _, id := range order {
		result = append(result, ScoredID{ID: id, Score: scores[id]})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}
