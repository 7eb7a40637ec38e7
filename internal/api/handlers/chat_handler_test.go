package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	middleware "github.com/markoladipo/notara/internal/api/middlewares"
	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/core/retrieval_engine"
	"github.com/markoladipo/notara/internal/logger"
	"github.com/markoladipo/notara/internal/models"
)

// stubSearchDb answers similarity queries with canned sources; everything
// else on the embedded interface stays nil.
type stubSearchDb struct {
	core.DbClient
	results []models.RetrievedSource
}

func (s *stubSearchDb) SearchPassages(ctx context.Context, search core.PassageSearch) ([]models.RetrievedSource, error) {
	return s.results, nil
}

type stubChatEmbedder struct{}

func (stubChatEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (stubChatEmbedder) Dimension() int { return 3 }

type stubLLM struct {
	answer string
}

func (s *stubLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.answer, nil
}

func chatBody(t *testing.T, notebookID, query string) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(map[string]string{"notebook_id": notebookID, "query": query})
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestQueryNotebookDedupeOverlapTakesEffect(t *testing.T) {
	// Two sources sharing 2 of 3 distinct words: Jaccard 0.5. Kept at the
	// default 0.9 threshold, collapsed when the knob is lowered to 0.4.
	db := &stubSearchDb{results: []models.RetrievedSource{
		{ID: "a", Content: "alpha beta gamma", Similarity: 0.9, FileName: "a.txt"},
		{ID: "b", Content: "alpha beta delta", Similarity: 0.8, FileName: "a.txt"},
	}}
	retriever := retrieval_engine.NewRetriever(db, stubChatEmbedder{}, nil, logger.NewNop())
	llm := &stubLLM{answer: "an answer"}

	run := func(dedupeOverlap float64) chatResponse {
		h := NewChatHandler(retriever, llm, dedupeOverlap, logger.NewNop())
		req := httptest.NewRequest("POST", "/api/chat/query",
			chatBody(t, uuid.NewString(), "what is alpha?"))
		req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
		rec := httptest.NewRecorder()
		h.QueryNotebook(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp chatResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	resp := run(0) // 0 falls back to the default threshold
	assert.Len(t, resp.Sources, 2)

	resp = run(0.4)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "a", resp.Sources[0].ID)
	assert.Equal(t, "an answer", resp.Answer)
}

func TestQueryNotebookRejectsMissingQuery(t *testing.T) {
	retriever := retrieval_engine.NewRetriever(&stubSearchDb{}, stubChatEmbedder{}, nil, logger.NewNop())
	h := NewChatHandler(retriever, &stubLLM{}, 0, logger.NewNop())

	req := httptest.NewRequest("POST", "/api/chat/query", chatBody(t, uuid.NewString(), ""))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	h.QueryNotebook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
