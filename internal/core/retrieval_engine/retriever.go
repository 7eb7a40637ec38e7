package retrieval_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/logger"
	"github.com/markoladipo/notara/internal/models"
)

var (
	ErrInvalidID       = errors.New("invalid identifier")
	ErrRetrievalFailed = errors.New("retrieval failed")
)

// RetrieverConfig tunes similarity search.
//
// TopK:            maximum passages returned per query (8).
// SimilarityFloor: minimum cosine similarity for a passage to qualify (0.3).
// MaxContextChars: character cap for GetAllPassages output (30000).
type RetrieverConfig struct {
	TopK            int
	SimilarityFloor float64
	MaxContextChars int
}

func (c *RetrieverConfig) withDefaults() RetrieverConfig {
	cfg := RetrieverConfig{}
	if c != nil {
		cfg = *c
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 8
	}
	if cfg.SimilarityFloor <= 0 {
		cfg.SimilarityFloor = 0.3
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 30000
	}
	return cfg
}

// Retriever embeds a query and runs a scoped nearest-neighbor search over a
// notebook's passages. Authorization is part of the search statement itself,
// so an unauthorized caller gets an empty result, indistinguishable from a
// notebook with no matching passages.
type Retriever struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	cfg      RetrieverConfig
	log      *logger.Logger
}

func NewRetriever(db core.DbClient, emb core.EmbeddingProvider, cfg *RetrieverConfig, log *logger.Logger) *Retriever {
	return &Retriever{
		db:       db,
		embedder: emb,
		cfg:      cfg.withDefaults(),
		log:      log.With("component", "retriever"),
	}
}

// Retrieve returns the top passages owned by the caller in the notebook,
// ordered by descending similarity, with anything below the floor dropped.
func (r *Retriever) Retrieve(ctx context.Context, notebookID, callerID, query string) ([]models.RetrievedSource, error) {
	return r.retrieve(ctx, notebookID, callerID, query, false)
}

// RetrieveShared is Retrieve with membership-wide scope: passages from any
// notebook the caller owns or has been added to as a member.
func (r *Retriever) RetrieveShared(ctx context.Context, notebookID, callerID, query string) ([]models.RetrievedSource, error) {
	return r.retrieve(ctx, notebookID, callerID, query, true)
}

func (r *Retriever) retrieve(ctx context.Context, notebookID, callerID, query string, shared bool) ([]models.RetrievedSource, error) {
	if _, err := uuid.Parse(notebookID); err != nil {
		return nil, fmt.Errorf("%w: notebook id %q", ErrInvalidID, notebookID)
	}
	if _, err := uuid.Parse(callerID); err != nil {
		return nil, fmt.Errorf("%w: caller id %q", ErrInvalidID, callerID)
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	vec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrRetrievalFailed, err)
	}

	sources, err := r.db.SearchPassages(ctx, core.PassageSearch{
		Vector:        vec,
		NotebookID:    notebookID,
		CallerID:      callerID,
		SharedAccess:  shared,
		Limit:         r.cfg.TopK,
		MinSimilarity: r.cfg.SimilarityFloor,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	r.log.Debug("similarity search complete",
		"notebook_id", notebookID, "results", len(sources), "shared", shared)
	return sources, nil
}

// GetAllPassages concatenates every passage in the notebook in document
// order, truncated to MaxContextChars characters. Used when the caller wants
// the full corpus rather than a query-relevant slice.
func (r *Retriever) GetAllPassages(ctx context.Context, notebookID, callerID string) (string, error) {
	if _, err := uuid.Parse(notebookID); err != nil {
		return "", fmt.Errorf("%w: notebook id %q", ErrInvalidID, notebookID)
	}
	if _, err := uuid.Parse(callerID); err != nil {
		return "", fmt.Errorf("%w: caller id %q", ErrInvalidID, callerID)
	}

	passages, err := r.db.ListPassagesByNotebook(ctx, notebookID, callerID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	// The cap is in characters, so the early exit counts runes, not the
	// builder's bytes.
	var (
		b     strings.Builder
		total int
	)
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
			total += 2
		}
		b.WriteString(p.Content)
		total += utf8.RuneCountInString(p.Content)
		if total >= r.cfg.MaxContextChars {
			break
		}
	}

	if total <= r.cfg.MaxContextChars {
		return b.String(), nil
	}
	runes := []rune(b.String())
	return string(runes[:r.cfg.MaxContextChars]), nil
}
