// Package embedding generates vector embeddings for document chunks and
// search queries.
package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ativushq/ativus-backend/internal/config"
)

// Provider turns text into embedding vectors.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// New picks a provider from configuration.
func New(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedding provider %q requires EMBEDDING_API_KEY", "openai")
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Dimensions), nil
	case "ollama":
		return NewOllamaProvider(cfg.OllamaURL, cfg.Model, cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimensions int
}

func NewOpenAIProvider(apiKey, model string, dimensions int) *OpenAIProvider {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAIProvider{
		client:     openai.NewClient(apiKey),
		model:      model,
		dimensions: dimensions,
	}
}

func (p *OpenAIProvider) Dimensions() int { return p.dimensions }

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Batch in groups of 100 for API limits.
	const batchSize = 100
	var all [][]float32

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(p.model),
			Input: texts[i:end],
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", i/batchSize, err)
		}
		for _, d := range resp.Data {
			all = append(all, d.Embedding)
		}
	}

	return all, nil
}

func (p *OpenAIProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, p, text)
}

func embedSingle(ctx context.Context, p Provider, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}
