package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	middleware "github.com/markoladipo/notara/internal/api/middlewares"
	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/core/retrieval_engine"
	"github.com/markoladipo/notara/internal/logger"
	"github.com/markoladipo/notara/internal/models"
)

type ChatHandler struct {
	retriever     *retrieval_engine.Retriever
	llm           core.LLMProvider
	dedupeOverlap float64
	log           *logger.Logger
}

func NewChatHandler(retriever *retrieval_engine.Retriever, llm core.LLMProvider, dedupeOverlap float64, log *logger.Logger) *ChatHandler {
	if dedupeOverlap <= 0 {
		dedupeOverlap = retrieval_engine.DefaultDedupeThreshold
	}
	return &ChatHandler{
		retriever:     retriever,
		llm:           llm,
		dedupeOverlap: dedupeOverlap,
		log:           log.With("handler", "chat"),
	}
}

type chatRequest struct {
	NotebookID string `json:"notebook_id"`
	Query      string `json:"query"`
}

type chatResponse struct {
	Answer  string                   `json:"answer"`
	Sources []models.RetrievedSource `json:"sources"`
}

const answerSystemPrompt = "You are an assistant answering questions from the " +
	"user's own documents. Ground every claim in the provided sources and cite " +
	"them as [Source N]. If the sources do not contain the answer, say so " +
	"instead of guessing."

// QueryNotebook answers a question over a notebook the caller owns or is a
// member of. A retrieval failure degrades to an unsourced answer rather than
// failing the request.
func (h *ChatHandler) QueryNotebook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		http.Error(w, "notebook_id and query are required", http.StatusBadRequest)
		return
	}

	sources, err := h.retriever.RetrieveShared(ctx, req.NotebookID, userID, req.Query)
	if errors.Is(err, retrieval_engine.ErrInvalidID) {
		http.Error(w, "invalid notebook id", http.StatusBadRequest)
		return
	}
	if err != nil {
		// Answer from the model alone; the caller still sees that no
		// sources backed it.
		h.log.Warn("retrieval degraded to unsourced answer",
			"notebook_id", req.NotebookID, "err", err)
		sources = nil
	}

	sources = retrieval_engine.DedupeWithThreshold(sources, h.dedupeOverlap)

	var userPrompt string
	if len(sources) > 0 {
		userPrompt = fmt.Sprintf("Sources:\n%s\n\nQuestion: %s",
			retrieval_engine.AssembleContext(sources), req.Query)
	} else {
		userPrompt = fmt.Sprintf("No sources were found for this question.\n\nQuestion: %s", req.Query)
	}

	answer, err := h.llm.Generate(ctx, answerSystemPrompt, userPrompt)
	if err != nil {
		h.log.Error("answer generation failed", "notebook_id", req.NotebookID, "err", err)
		http.Error(w, "could not generate an answer", http.StatusBadGateway)
		return
	}

	if sources == nil {
		sources = []models.RetrievedSource{}
	}
	writeJSON(w, http.StatusOK, chatResponse{Answer: answer, Sources: sources})
}
