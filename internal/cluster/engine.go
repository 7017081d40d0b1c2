// Package cluster groups hot items into topical clusters and proposes
// labeled topics for the room reconciler.
package cluster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agora-live/agora/pkg/models"
	"github.com/agora-live/agora/pkg/similarity"
)

// minCandidates is the smallest batch that counts as signal. Anything below
// returns zero topics, which the reconciler treats as a full reset.
const minCandidates = 3

// minGroupSize rejects singleton clusters: one article is not a discussion.
const minGroupSize = 2

// dupeThreshold is the Jaccard title similarity above which two candidates
// count as the same syndicated story.
const dupeThreshold = 0.9

// ItemEmbedder produces the embedding vector for one item's title.
type ItemEmbedder interface {
	EmbedItem(ctx context.Context, itemID int64, title string) ([]float32, error)
}

// Keyworder returns the bag of normalized candidate keywords for a title.
type Keyworder interface {
	Keywords(text string) []string
}

// Config holds the engine's acceptance thresholds.
type Config struct {
	MaxClusters   int     // upper bound on k (default 4)
	MinPopularity int64   // minimum summed view count per group
	MinCoherence  float64 // minimum keyword coherence per group
}

// Engine turns a candidate item batch into accepted topics.
type Engine struct {
	embedder ItemEmbedder
	keywords Keyworder
	cfg      Config
}

// NewEngine creates a clustering engine.
func NewEngine(embedder ItemEmbedder, keywords Keyworder, cfg Config) *Engine {
	if cfg.MaxClusters < 1 {
		cfg.MaxClusters = 4
	}
	return &Engine{embedder: embedder, keywords: keywords, cfg: cfg}
}

// Cluster partitions candidates into topic groups and returns the accepted
// ones. The returned topics' member sets are pairwise disjoint; rejected
// groups' items simply fall out of the cycle. A collaborator failure aborts
// the whole call — the caller skips the cycle rather than clustering a
// partial batch.
func (e *Engine) Cluster(ctx context.Context, candidates []models.Item, now time.Time) ([]models.Topic, error) {
	// Syndicated near-duplicates would double-count one story's popularity.
	// Candidates arrive most-viewed first, so the kept representative is the
	// most viewed of its duplicate group.
	candidates = similarity.DedupeTitles(candidates, dupeThreshold)

	n := len(candidates)
	if n < minCandidates {
		return nil, nil
	}

	// Item-id order fixes the input ordering for the deterministic
	// partitioning below.
	sorted := make([]models.Item, n)
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	vectors := make([][]float32, n)
	for i, item := range sorted {
		vec, err := e.embedder.EmbedItem(ctx, item.ID, item.Title)
		if err != nil {
			return nil, fmt.Errorf("embed item %d: %w", item.ID, err)
		}
		vectors[i] = vec
	}

	k := n / 2
	if k > e.cfg.MaxClusters {
		k = e.cfg.MaxClusters
	}
	if k < 1 {
		return nil, nil
	}

	assignments := kmeans(vectors, k)

	groups := make(map[int][]models.Item)
	for i, c := range assignments {
		groups[c] = append(groups[c], sorted[i])
	}

	var accepted []models.Topic
	for _, c := range sortedGroupKeys(groups) {
		members := groups[c]
		if len(members) < minGroupSize {
			continue
		}

		var score int64
		for _, item := range members {
			score += item.ViewCount
		}
		if score < e.cfg.MinPopularity {
			log.Debug().Int("size", len(members)).Int64("score", score).
				Msg("Cluster rejected: below popularity floor")
			continue
		}

		label, coherence := e.labelGroup(members)
		if coherence < e.cfg.MinCoherence || label == "" {
			log.Debug().Int("size", len(members)).Float64("coherence", coherence).
				Msg("Cluster rejected: incoherent")
			continue
		}

		ids := make([]int64, len(members))
		for i, item := range members {
			ids[i] = item.ID
		}

		accepted = append(accepted, models.Topic{
			Label:     label,
			ItemIDs:   ids,
			Score:     score,
			Coherence: coherence,
		})
	}

	sort.Slice(accepted, func(i, j int) bool {
		if accepted[i].Score != accepted[j].Score {
			return accepted[i].Score > accepted[j].Score
		}
		return accepted[i].Label < accepted[j].Label
	})

	// Two distinct clusters landing on the same label must stay distinct
	// rooms: merging them would break the one-room-per-label invariant.
	disambiguateLabels(accepted)

	return accepted, nil
}

// labelGroup extracts keywords from member titles, computes coherence, and
// builds the two-keyword label.
//
// Coherence is the fraction of distinct keywords that recur in at least two
// member titles — a cheap proxy for topical tightness.
func (e *Engine) labelGroup(members []models.Item) (string, float64) {
	// titleCount[kw] = number of member titles containing kw
	titleCount := make(map[string]int)
	for _, item := range members {
		for _, kw := range e.keywords.Keywords(item.Title) {
			titleCount[kw]++
		}
	}
	if len(titleCount) == 0 {
		return "", 0
	}

	recurring := 0
	for _, count := range titleCount {
		if count >= 2 {
			recurring++
		}
	}
	coherence := float64(recurring) / float64(len(titleCount))

	keywords := make([]string, 0, len(titleCount))
	for kw := range titleCount {
		keywords = append(keywords, kw)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if titleCount[keywords[i]] != titleCount[keywords[j]] {
			return titleCount[keywords[i]] > titleCount[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	label := keywords[0]
	if len(keywords) > 1 {
		label += "-" + keywords[1]
	}
	return label, coherence
}

// disambiguateLabels appends a numeric discriminator to repeated labels.
func disambiguateLabels(topics []models.Topic) {
	seen := make(map[string]int)
	for i := range topics {
		label := topics[i].Label
		seen[label]++
		if seen[label] > 1 {
			topics[i].Label = fmt.Sprintf("%s-%d", label, seen[label])
		}
	}
}

// sortedGroupKeys returns group indices in ascending order for a stable
// iteration over the cluster map.
func sortedGroupKeys(groups map[int][]models.Item) []int {
	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
