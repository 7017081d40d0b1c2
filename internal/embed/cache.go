package embed

import (
	"context"

	"github.com/rs/zerolog/log"
)

// VectorCache is the persistence contract the cached embedder needs.
// Implemented by the sqlite-vec backed store.
type VectorCache interface {
	Get(ctx context.Context, ids []int64) (map[int64][]float32, error)
	Put(ctx context.Context, id int64, embedding []float32) error
}

// CachedEmbedder wraps an Embedder with a persistent per-item vector cache,
// so a title is only ever sent to the embedding model once.
type CachedEmbedder struct {
	inner Embedder
	cache VectorCache
}

// NewCachedEmbedder creates a cached embedder.
func NewCachedEmbedder(inner Embedder, cache VectorCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

// EmbedItem returns the vector for one item's title, consulting the cache
// first. Cache read/write failures are logged and degrade to a straight
// model call; an embedding model failure is returned to the caller.
func (c *CachedEmbedder) EmbedItem(ctx context.Context, itemID int64, title string) ([]float32, error) {
	cached, err := c.cache.Get(ctx, []int64{itemID})
	if err != nil {
		log.Warn().Err(err).Int64("item", itemID).Msg("Vector cache read failed")
	} else if vec, ok := cached[itemID]; ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, title)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(ctx, itemID, vec); err != nil {
		log.Warn().Err(err).Int64("item", itemID).Msg("Vector cache write failed")
	}
	return vec, nil
}
