package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/markoladipo/notara/internal/api/middlewares"
	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/core/ingestion_engine"
	"github.com/markoladipo/notara/internal/core/retrieval_engine"
	"github.com/markoladipo/notara/internal/logger"
	"github.com/markoladipo/notara/internal/models"
)

type NotebookHandler struct {
	dbclient  core.DbClient
	retriever *retrieval_engine.Retriever
	log       *logger.Logger
}

func NewNotebookHandler(dbclient core.DbClient, retriever *retrieval_engine.Retriever, log *logger.Logger) *NotebookHandler {
	return &NotebookHandler{dbclient: dbclient, retriever: retriever, log: log.With("handler", "notebook")}
}

type createNotebookRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *NotebookHandler) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req createNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	nb := &models.Notebook{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Status:      ingestion_engine.StatusReady, // no documents yet
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := h.dbclient.CreateNotebook(r.Context(), nb); err != nil {
		h.log.Error("notebook create failed", "err", err)
		http.Error(w, "could not create notebook", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, nb)
}

func (h *NotebookHandler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	notebooks, err := h.dbclient.ListNotebooksByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not list notebooks", http.StatusInternalServerError)
		return
	}
	if notebooks == nil {
		notebooks = []models.Notebook{}
	}
	writeJSON(w, http.StatusOK, notebooks)
}

// GetNotebook returns the notebook with its documents. The status field is
// the aggregate of the documents' statuses, recomputed on every ingestion.
func (h *NotebookHandler) GetNotebook(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	notebookID := chi.URLParam(r, "notebook_id")

	nb, err := h.dbclient.GetNotebookByID(r.Context(), notebookID)
	if err != nil || nb == nil || nb.UserID != userID {
		// Same answer for "does not exist" and "not yours".
		http.Error(w, "notebook not found", http.StatusNotFound)
		return
	}

	documents, err := h.dbclient.ListDocumentsByNotebook(r.Context(), notebookID)
	if err != nil {
		http.Error(w, "could not list documents", http.StatusInternalServerError)
		return
	}
	if documents == nil {
		documents = []models.Document{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notebook":  nb,
		"documents": documents,
	})
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

// AddMember shares the notebook with another user. Only the owner may share.
func (h *NotebookHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	notebookID := chi.URLParam(r, "notebook_id")

	nb, err := h.dbclient.GetNotebookByID(r.Context(), notebookID)
	if err != nil || nb == nil || nb.UserID != userID {
		http.Error(w, "notebook not found", http.StatusNotFound)
		return
	}

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.dbclient.AddNotebookMember(r.Context(), notebookID, req.UserID); err != nil {
		h.log.Error("add member failed", "notebook_id", notebookID, "err", err)
		http.Error(w, "could not add member", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAllPassages returns the notebook's full extracted text, capped, for
// whole-corpus features like summaries or study guides.
func (h *NotebookHandler) GetAllPassages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	notebookID := chi.URLParam(r, "notebook_id")

	content, err := h.retriever.GetAllPassages(r.Context(), notebookID, userID)
	if errors.Is(err, retrieval_engine.ErrInvalidID) {
		http.Error(w, "invalid notebook id", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "could not load passages", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}
