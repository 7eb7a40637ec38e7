package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/logger"
)

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	dim       int
	log       *logger.Logger
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, dim int, log *logger.Logger) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	if dim <= 0 {
		dim = 768
	}
	return &GeminiEmbedder{
		client:    cl,
		modelName: modelName,
		dim:       dim,
		log:       log.With("component", "embedder", "model", modelName),
	}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiEmbedder) Dimension() int {
	return g.dim
}

// EmbedText embeds one passage or query. Rate-limited provider failures are
// retried with exponential backoff; every other failure surfaces immediately.
func (g *GeminiEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := withBackoff(ctx, g.log, func() error {
		v, err := g.embedOnce(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (g *GeminiEmbedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.modelName)

	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedEmbedding)
	}

	vec := resp.Embedding.Values
	if len(vec) != g.dim {
		return nil, fmt.Errorf("%w: got %d components, want %d", ErrMalformedEmbedding, len(vec), g.dim)
	}
	return vec, nil
}
