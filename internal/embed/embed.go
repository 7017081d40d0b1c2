// Package embed provides title embedding for the clustering engine.
package embed

import "context"

// Embedder converts text into a fixed-dimension vector. Implementations must
// return vectors of a single, constant length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
