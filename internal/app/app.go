package app

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/markoladipo/notara/internal/config"
	db "github.com/markoladipo/notara/internal/core/database"
	"github.com/markoladipo/notara/internal/core/ingestion_engine"
	"github.com/markoladipo/notara/internal/core/llm"
	objectclient "github.com/markoladipo/notara/internal/core/object-client"
	"github.com/markoladipo/notara/internal/core/retrieval_engine"
	"github.com/markoladipo/notara/internal/logger"
)

// App owns every long-lived dependency and the HTTP server built on top of
// them.
type App struct {
	Log       *logger.Logger
	DBClient  *db.DatabaseClient
	Ingestor  *ingestion_engine.DocumentIngestor
	Retriever *retrieval_engine.Retriever
	Server    *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.Info("database initialized and ready")

	objClient, err := objectclient.NewS3Client(appCtx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedDim, log)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel, log)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	ingestor := ingestion_engine.NewDocumentIngestor(dbClient, objClient, embedder, llmProvider,
		&ingestion_engine.IngestConfig{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
			BatchSize:    cfg.BatchSize,
			BatchDelay:   cfg.BatchDelay,
		}, log)
	ingestor.Start(ctx, runtime.NumCPU())

	retriever := retrieval_engine.NewRetriever(dbClient, embedder,
		&retrieval_engine.RetrieverConfig{
			TopK:            cfg.TopK,
			SimilarityFloor: cfg.SimilarityFloor,
		}, log)

	server := NewServer(cfg, dbClient, objClient, ingestor, retriever, llmProvider, log)

	return &App{
		Log:       log,
		DBClient:  dbClient.(*db.DatabaseClient),
		Ingestor:  ingestor,
		Retriever: retriever,
		Server:    server,
	}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
