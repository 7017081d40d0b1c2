package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Client embeds text via an OpenAI-compatible embeddings endpoint. Local
// servers (Ollama, llama.cpp, vLLM) expose the same API, so BaseURL decides
// whether this talks to a hosted or a local model.
type Client struct {
	api   *openai.Client
	model string
	dims  int
}

// NewClient creates an embedding client.
func NewClient(baseURL, apiKey, model string, dims int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
		dims:  dims,
	}
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contains no data")
	}

	vec := resp.Data[0].Embedding
	if len(vec) != c.dims {
		return nil, fmt.Errorf("model %s returned %d dims, configured for %d",
			c.model, len(vec), c.dims)
	}
	return vec, nil
}
