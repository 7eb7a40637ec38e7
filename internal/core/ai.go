package core

import "context"

// EmbeddingProvider converts one text passage into a fixed-length vector.
// Implementations own their retry policy for transient provider failures.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
