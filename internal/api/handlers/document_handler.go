package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/markoladipo/notara/internal/api/middlewares"
	"github.com/markoladipo/notara/internal/config"
	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/core/ingestion_engine"
	"github.com/markoladipo/notara/internal/logger"
	"github.com/markoladipo/notara/internal/models"
)

type DocumentHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient
	ingestor     ingestion_engine.Ingestor
	cfg          *config.Config
	log          *logger.Logger
}

func NewDocumentHandler(dbclient core.DbClient, objectclient core.ObjectClient, ing ingestion_engine.Ingestor, cfg *config.Config, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		dbclient:     dbclient,
		objectclient: objectclient,
		ingestor:     ing,
		cfg:          cfg,
		log:          log.With("handler", "document"),
	}
}

// UploadDocument stores the file, records the document as processing, and
// queues it for background ingestion. Unsupported formats are rejected before
// any byte leaves the request.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(52 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	userID := middleware.UserID(r.Context())
	notebookID := r.FormValue("notebook_id")

	nb, err := h.dbclient.GetNotebookByID(r.Context(), notebookID)
	if err != nil || nb == nil || nb.UserID != userID {
		http.Error(w, "notebook not found", http.StatusNotFound)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileType, err := ingestion_engine.DetectFileType(header.Filename, contentType)
	if err != nil {
		http.Error(w, fmt.Sprintf("unsupported file type: %s", header.Filename), http.StatusUnsupportedMediaType)
		return
	}

	// Sanitized key prevents path components smuggled via the filename.
	docID := uuid.NewString()
	s3Key := fmt.Sprintf("%s/%s/%s", userID, docID, filepath.Base(header.Filename))

	uploadctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	url, err := h.objectclient.UploadFile(uploadctx, h.cfg.BucketName, s3Key, file, contentType)
	if err != nil {
		h.log.Error("object upload failed", "document_id", docID, "err", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	doc := &models.Document{
		ID:          docID,
		NotebookID:  notebookID,
		UserID:      userID,
		FileName:    header.Filename,
		StorageURL:  url,
		FileType:    string(fileType),
		ContentType: contentType,
		Status:      ingestion_engine.StatusProcessing,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := h.dbclient.CreateDocument(uploadctx, doc); err != nil {
		h.log.Error("document insert failed", "document_id", docID, "err", err)
		http.Error(w, "failed to store document metadata", http.StatusInternalServerError)
		return
	}

	// The notebook reflects the new in-flight document immediately.
	_ = h.dbclient.UpdateNotebookStatus(uploadctx, notebookID, ingestion_engine.StatusProcessing)

	h.ingestor.Enqueue(doc.ID)

	writeJSON(w, http.StatusAccepted, doc)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	notebookID := chi.URLParam(r, "notebook_id")

	nb, err := h.dbclient.GetNotebookByID(r.Context(), notebookID)
	if err != nil || nb == nil || nb.UserID != userID {
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
	writeJSON(w, http.StatusOK, documents)
}

// DeleteDocument removes a document, its passages, and its stored object,
// then recomputes the notebook's aggregate status.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)
	documentID := chi.URLParam(r, "document_id")

	doc, err := h.dbclient.GetDocumentByID(ctx, documentID)
	if err != nil || doc == nil || doc.UserID != userID {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	if err := h.dbclient.DeletePassagesByDocument(ctx, documentID); err != nil {
		h.log.Error("passage delete failed", "document_id", documentID, "err", err)
		http.Error(w, "could not delete document", http.StatusInternalServerError)
		return
	}
	if err := h.dbclient.DeleteDocument(ctx, documentID); err != nil {
		h.log.Error("document delete failed", "document_id", documentID, "err", err)
		http.Error(w, "could not delete document", http.StatusInternalServerError)
		return
	}

	// Object cleanup is best effort; an orphaned object never blocks the API.
	bucket, key := ingestion_engine.ParseStorageURL(doc.StorageURL)
	if err := h.objectclient.DeleteFile(ctx, bucket, key); err != nil {
		h.log.Warn("stored object delete failed", "document_id", documentID, "err", err)
	}

	statuses, err := h.dbclient.ListDocumentStatuses(ctx, doc.NotebookID)
	if err == nil {
		_ = h.dbclient.UpdateNotebookStatus(ctx, doc.NotebookID, ingestion_engine.AggregateStatus(statuses))
	}

	w.WriteHeader(http.StatusNoContent)
}

// DownloadDocument streams the original uploaded bytes back to the owner.
func (h *DocumentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)
	documentID := chi.URLParam(r, "document_id")

	doc, err := h.dbclient.GetDocumentByID(ctx, documentID)
	if err != nil || doc == nil || doc.UserID != userID {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	bucket, key := ingestion_engine.ParseStorageURL(doc.StorageURL)
	rc, err := h.objectclient.GetObjectReader(ctx, bucket, key)
	if err != nil {
		h.log.Error("object fetch failed", "document_id", documentID, "err", err)
		http.Error(w, "could not fetch document", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(doc.FileName)))
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn("download aborted", "document_id", documentID, "err", err)
	}
}

// GetDocumentStatus is a light polling endpoint for upload progress.
func (h *DocumentHandler) GetDocumentStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	documentID := chi.URLParam(r, "document_id")

	doc, err := h.dbclient.GetDocumentByID(r.Context(), documentID)
	if err != nil || doc == nil || doc.UserID != userID {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         doc.ID,
		"status":     doc.Status,
		"unit_count": doc.UnitCount,
		"summary":    doc.Summary,
	})
}
