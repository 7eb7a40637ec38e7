package ingestion_engine

import (
	"context"

	"github.com/markoladipo/notara/internal/models"
)

type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(docID string)
	ProcessOne(ctx context.Context, docID string) error
	Ingest(ctx context.Context, req IngestRequest) (*models.ProcessResult, error)
}
