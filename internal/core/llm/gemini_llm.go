package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/logger"
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
	log       *logger.Logger
}

var _ core.LLMProvider = (*GeminiLLM)(nil)

// NewGeminiLLM builds the generation provider. The model name comes from
// configuration; there is no baked-in fallback.
func NewGeminiLLM(ctx context.Context, apiKey, modelName string, log *logger.Logger) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if modelName == "" {
		return nil, fmt.Errorf("generation model name not configured")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiLLM{
		client:    cl,
		modelName: modelName,
		log:       log.With("component", "llm", "model", modelName),
	}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Generate produces a completion for the system+user prompt pair.
// Rate-limited provider failures are retried with the same backoff policy as
// embeddings; other failures surface immediately.
func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var out string
	err := withBackoff(ctx, g.log, func() error {
		text, err := g.generateOnce(ctx, systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (g *GeminiLLM) generateOnce(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		g.log.Warn("generation returned no candidates")
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	g.log.Debug("generation complete", "chars", b.Len())
	return b.String(), nil
}
