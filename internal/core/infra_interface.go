package core

import (
	"context"
	"io"

	"github.com/markoladipo/notara/internal/models"
)

// PassageSearch parameterizes a nearest-neighbor query against the passage
// store. The authorization scope and the similarity filter are applied in a
// single server-side statement so a caller can never probe for passages it
// cannot read.
type PassageSearch struct {
	Vector     []float32
	NotebookID string
	CallerID   string
	// SharedAccess widens the scope from passages owned by the caller to any
	// notebook the caller owns or is a member of.
	SharedAccess  bool
	Limit         int
	MinSimilarity float64
}

// DbClient defines all persistence operations the pipeline and handlers need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) (err error)
	GetUserByEmail(ctx context.Context, email string) (user *models.User, err error)

	CreateNotebook(ctx context.Context, nb *models.Notebook) error
	GetNotebookByID(ctx context.Context, id string) (*models.Notebook, error)
	ListNotebooksByUser(ctx context.Context, userID string) ([]models.Notebook, error)
	UpdateNotebookStatus(ctx context.Context, id string, status string) error
	AddNotebookMember(ctx context.Context, notebookID, userID string) error

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByNotebook(ctx context.Context, notebookID string) ([]models.Document, error)
	ListDocumentStatuses(ctx context.Context, notebookID string) ([]string, error)
	UpdateDocumentStatus(ctx context.Context, id string, status string) error
	UpdateDocumentIngestResult(ctx context.Context, id string, status string, unitCount int) error
	UpdateDocumentSummary(ctx context.Context, id string, summary string) error
	DeleteDocument(ctx context.Context, id string) error

	InsertPassages(ctx context.Context, passages []models.Passage) error
	DeletePassagesByDocument(ctx context.Context, documentID string) error
	DeletePassagesByNotebook(ctx context.Context, notebookID string) error
	ListPassagesByNotebook(ctx context.Context, notebookID, userID string) ([]models.Passage, error)
	SearchPassages(ctx context.Context, search PassageSearch) ([]models.RetrievedSource, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
