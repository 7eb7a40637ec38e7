package ingestion_engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/logger"
	"github.com/markoladipo/notara/internal/models"
)

// IngestRequest carries one document's bytes through the pipeline.
// DocumentID is optional; when empty, ingestion replaces the whole
// notebook's passages instead of a single document's.
type IngestRequest struct {
	NotebookID  string
	UserID      string
	DocumentID  string
	FileName    string
	FileType    FileType
	ContentType string
	Data        []byte
}

// DocumentIngestor drives the chunk→embed→persist loop for whole documents
// under a shared rate budget, and owns the worker queue that feeds it.
type DocumentIngestor struct {
	db       core.DbClient
	obj      core.ObjectClient
	embedder core.EmbeddingProvider
	llm      core.LLMProvider
	cfg      IngestConfig
	log      *logger.Logger
	jobs     chan string
}

var _ Ingestor = (*DocumentIngestor)(nil)

// NewDocumentIngestor constructs the ingestor with a bounded job queue (64).
func NewDocumentIngestor(db core.DbClient, obj core.ObjectClient, emb core.EmbeddingProvider, llm core.LLMProvider, cfg *IngestConfig, log *logger.Logger) *DocumentIngestor {
	return &DocumentIngestor{
		db:       db,
		obj:      obj,
		embedder: emb,
		llm:      llm,
		cfg:      cfg.withDefaults(),
		log:      log.With("component", "ingestor"),
		jobs:     make(chan string, 64),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel. Two jobs
// for the same document must never run concurrently; the upload handler
// enqueues each document once per accepted upload.
func (i *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					i.log.Info("ingest worker shutting down", "worker", w)
					return
				case docID := <-i.jobs:
					if err := i.ProcessOne(ctx, docID); err != nil {
						i.log.Error("document ingestion failed", "worker", w, "document_id", docID, "err", err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a document ID for ingestion.
// If the queue is full, this call will block until space frees up.
func (i *DocumentIngestor) Enqueue(docID string) {
	i.jobs <- docID
}

// ProcessOne loads the document record, fetches its bytes from object
// storage, runs Ingest, and writes the resulting document and notebook
// statuses. The notebook status is recomputed after every attempt, success
// or failure, so it never goes stale while sibling documents are in flight.
func (i *DocumentIngestor) ProcessOne(ctx context.Context, docID string) error {
	doc, err := i.db.GetDocumentByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", docID)
	}

	_ = i.db.UpdateDocumentStatus(ctx, docID, StatusProcessing)
	_ = i.recomputeNotebookStatus(ctx, doc.NotebookID)

	fail := func(cause error) error {
		_ = i.db.UpdateDocumentStatus(ctx, docID, StatusError)
		_ = i.recomputeNotebookStatus(ctx, doc.NotebookID)
		return cause
	}

	bucket, key := ParseStorageURL(doc.StorageURL)
	data, err := i.obj.GetFile(ctx, bucket, key)
	if err != nil {
		return fail(fmt.Errorf("fetch document bytes: %w", err))
	}

	res, err := i.Ingest(ctx, IngestRequest{
		NotebookID:  doc.NotebookID,
		UserID:      doc.UserID,
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		FileType:    FileType(doc.FileType),
		ContentType: doc.ContentType,
		Data:        data,
	})
	if err != nil {
		return fail(err)
	}

	if err := i.db.UpdateDocumentIngestResult(ctx, docID, StatusReady, res.UnitCount); err != nil {
		return fail(fmt.Errorf("record ingest result: %w", err))
	}
	return i.recomputeNotebookStatus(ctx, doc.NotebookID)
}

// Ingest runs extract → normalize → chunk → embed → persist for one
// document. Ingestion always replaces: existing passages for the document
// (or notebook, when no document ID is given) are deleted up front, and any
// failure after that point rolls back whatever was persisted so a document
// is never left half-ingested.
func (i *DocumentIngestor) Ingest(ctx context.Context, req IngestRequest) (*models.ProcessResult, error) {
	if err := validateIDs(req); err != nil {
		return nil, err
	}

	ft := req.FileType
	if !ft.Valid() {
		detected, err := DetectFileType(req.FileName, req.ContentType)
		if err != nil {
			return nil, err
		}
		ft = detected
	}

	text, units, err := ExtractText(req.Data, ft)
	if err != nil {
		return nil, err
	}

	chunks := ChunkerConfig{TargetSize: i.cfg.ChunkSize, Overlap: i.cfg.ChunkOverlap}.Split(Normalize(text))
	if len(chunks) == 0 {
		return nil, ErrNoContentExtracted
	}

	if err := i.deleteExisting(ctx, req); err != nil {
		return nil, fmt.Errorf("clear previous passages: %w", err)
	}

	if err := i.embedAndPersist(ctx, req, chunks); err != nil {
		i.rollback(req)
		return nil, err
	}

	if req.DocumentID != "" && i.llm != nil {
		// Detached side task: its outcome never affects the ingestion result.
		go i.generateSummary(req.DocumentID, req.FileName, chunks)
	}

	return &models.ProcessResult{
		UnitCount:   units,
		ChunkCount:  len(chunks),
		PreviewText: truncateRunes(chunks[0], i.cfg.PreviewLen),
	}, nil
}

// embedAndPersist partitions chunks into fixed-size batches. Within a batch
// every passage is embedded concurrently; the batch is then persisted as one
// transactional write. Batches are strictly sequential, paced by a limiter
// so consecutive batches are at least BatchDelay apart (nothing waits after
// the final batch).
func (i *DocumentIngestor) embedAndPersist(ctx context.Context, req IngestRequest, chunks []string) error {
	limiter := rate.NewLimiter(rate.Every(i.cfg.BatchDelay), 1)

	for start := 0; start < len(chunks); start += i.cfg.BatchSize {
		end := start + i.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		vecs := make([][]float32, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for j, text := range batch {
			g.Go(func() error {
				vec, err := i.embedder.EmbedText(gctx, text)
				if err != nil {
					return fmt.Errorf("embed passage %d: %w", start+j, err)
				}
				vecs[j] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		rows := make([]models.Passage, len(batch))
		for j := range batch {
			rows[j] = models.Passage{
				ID:         uuid.NewString(),
				NotebookID: req.NotebookID,
				UserID:     req.UserID,
				DocumentID: req.DocumentID,
				Content:    batch[j],
				Embedding:  vecs[j],
				Position:   start + j,
				Metadata: map[string]string{
					"document_id": req.DocumentID,
					"file_name":   req.FileName,
				},
			}
		}
		if err := i.db.InsertPassages(ctx, rows); err != nil {
			return fmt.Errorf("persist batch at %d: %w", start, err)
		}

		i.log.Debug("batch persisted", "document_id", req.DocumentID,
			"from", start, "count", len(batch))
	}
	return nil
}

func (i *DocumentIngestor) deleteExisting(ctx context.Context, req IngestRequest) error {
	if req.DocumentID != "" {
		return i.db.DeletePassagesByDocument(ctx, req.DocumentID)
	}
	return i.db.DeletePassagesByNotebook(ctx, req.NotebookID)
}

// rollback best-effort deletes whatever passages were persisted for this run.
// Uses its own context so cleanup still happens when the caller's context is
// already cancelled.
func (i *DocumentIngestor) rollback(req IngestRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := i.deleteExisting(ctx, req); err != nil {
		i.log.Error("rollback failed, partial passages may remain",
			"document_id", req.DocumentID, "notebook_id", req.NotebookID, "err", err)
	}
}

func (i *DocumentIngestor) recomputeNotebookStatus(ctx context.Context, notebookID string) error {
	statuses, err := i.db.ListDocumentStatuses(ctx, notebookID)
	if err != nil {
		return fmt.Errorf("list document statuses: %w", err)
	}
	return i.db.UpdateNotebookStatus(ctx, notebookID, AggregateStatus(statuses))
}

// generateSummary derives a title/description/suggested-questions summary
// from the first few chunks and stores it on the document. It runs detached
// from the triggering request and swallows its own errors: a summary failure
// must never fail an otherwise-successful ingestion.
func (i *DocumentIngestor) generateSummary(docID, fileName string, chunks []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sample := chunks
	if len(sample) > 3 {
		sample = sample[:3]
	}

	const system = "You summarize uploaded documents. Respond with a JSON object " +
		`{"title": string, "description": string, "questions": [string, string, string]} ` +
		"and nothing else."
	prompt := fmt.Sprintf("File name: %s\n\nOpening content:\n%s", fileName, strings.Join(sample, "\n\n"))

	raw, err := i.llm.Generate(ctx, system, prompt)
	if err != nil {
		i.log.Warn("document summary generation failed", "document_id", docID, "err", err)
		return
	}

	summary := strings.TrimSpace(raw)
	if !json.Valid([]byte(summary)) {
		// Keep whatever the model produced; the summary is display-only.
		i.log.Debug("summary is not valid JSON, storing raw text", "document_id", docID)
	}
	if err := i.db.UpdateDocumentSummary(ctx, docID, summary); err != nil {
		i.log.Warn("storing document summary failed", "document_id", docID, "err", err)
	}
}

func validateIDs(req IngestRequest) error {
	if _, err := uuid.Parse(req.NotebookID); err != nil {
		return fmt.Errorf("%w: notebook id %q", ErrInvalidID, req.NotebookID)
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		return fmt.Errorf("%w: user id %q", ErrInvalidID, req.UserID)
	}
	if req.DocumentID != "" {
		if _, err := uuid.Parse(req.DocumentID); err != nil {
			return fmt.Errorf("%w: document id %q", ErrInvalidID, req.DocumentID)
		}
	}
	return nil
}

// ParseStorageURL extracts the bucket and key from a virtual-hosted-style S3
// URL, e.g. https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf.
func ParseStorageURL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	if i := strings.Index(host, "."); i > 0 {
		bucket = host[:i]
	}
	return bucket, key
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
