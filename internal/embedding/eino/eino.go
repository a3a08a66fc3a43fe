package eino

import (
	"context"
	"fmt"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"

	"studysync/internal/embedding"
)

// Embedder adapts an eino embedding component. Any OpenAI-compatible
// endpoint works, including gateways serving BGE models.
type Embedder struct {
	inner einoEmbedding.Embedder
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("eino embeddings: api key is required")
	}
	inner, err := openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("eino embedder: %w", err)
	}
	return Wrap(inner), nil
}

// Wrap adapts an existing eino embedder.
func Wrap(inner einoEmbedding.Embedder) *Embedder {
	return &Embedder{inner: inner}
}

func (e *Embedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.inner.EmbedStrings(ctx, texts, einoEmbedding.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("eino embeddings: %w", err)
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		out[i] = embedding.ToFloat32(v)
	}
	if err := embedding.CheckBatch(texts, out); err != nil {
		return nil, fmt.Errorf("eino embeddings: %w", err)
	}
	return out, nil
}
