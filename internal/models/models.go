package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Notebook is a user's named collection of ingested documents sharing one
// retrieval scope. Status is derived from the statuses of its documents
// (error > processing > ready) and recomputed after every ingestion attempt.
type Notebook struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"` // processing | ready | error
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents one uploaded source file within a notebook.
// UnitCount is the page count for paginated formats, 1 otherwise.
type Document struct {
	ID          string    `db:"id" json:"id"`
	NotebookID  string    `db:"notebook_id" json:"notebook_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StorageURL  string    `db:"storage_url" json:"storage_url"`
	FileType    string    `db:"file_type" json:"file_type"`       // pdf | text | richtext | image
	ContentType string    `db:"content_type" json:"content_type"` // declared MIME type
	Status      string    `db:"status" json:"status"`             // processing | ready | error
	UnitCount   int       `db:"unit_count" json:"unit_count"`
	Summary     string    `db:"summary" json:"summary,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Passage is one bounded, overlapping slice of a document's extracted text,
// stored with its embedding vector. Positions are unique and monotonically
// increasing within one ingestion run; a document's passages are either all
// present or none.
type Passage struct {
	ID         string            `db:"id" json:"id"`
	NotebookID string            `db:"notebook_id" json:"notebook_id"`
	UserID     string            `db:"user_id" json:"user_id"`
	DocumentID string            `db:"document_id" json:"document_id"`
	Content    string            `db:"content" json:"content"`
	Embedding  []float32         `db:"embedding" json:"-"` // pgvector column
	Position   int               `db:"position" json:"position"`
	Metadata   map[string]string `db:"metadata" json:"metadata"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}

// RetrievedSource is a read-only projection of a passage returned from a
// similarity query. Constructed per request, never persisted.
type RetrievedSource struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	FileName   string  `json:"file_name"`
}

// ProcessResult summarizes one completed ingestion run.
type ProcessResult struct {
	UnitCount   int    `json:"unit_count"`
	ChunkCount  int    `json:"chunk_count"`
	PreviewText string `json:"preview_text"`
}
