package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markoladipo/notara/internal/api/handlers"
	appMiddleware "github.com/markoladipo/notara/internal/api/middlewares"
	"github.com/markoladipo/notara/internal/config"
	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/core/ingestion_engine"
	"github.com/markoladipo/notara/internal/core/retrieval_engine"
	"github.com/markoladipo/notara/internal/logger"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient, ing ingestion_engine.Ingestor, retriever *retrieval_engine.Retriever, llm core.LLMProvider, log *logger.Logger) *Server {
	authHandler := handlers.NewAuthHandler(db, log)
	notebookHandler := handlers.NewNotebookHandler(db, retriever, log)
	docHandler := handlers.NewDocumentHandler(db, obj, ing, cfg, log)
	chatHandler := handlers.NewChatHandler(retriever, llm, cfg.DedupeOverlap, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware)

			protected.Post("/notebooks", notebookHandler.CreateNotebook)
			protected.Get("/notebooks", notebookHandler.ListNotebooks)
			protected.Get("/notebooks/{notebook_id}", notebookHandler.GetNotebook)
			protected.Post("/notebooks/{notebook_id}/members", notebookHandler.AddMember)
			protected.Get("/notebooks/{notebook_id}/passages", notebookHandler.GetAllPassages)

			protected.Post("/documents/upload", docHandler.UploadDocument)
			protected.Get("/notebooks/{notebook_id}/documents", docHandler.GetDocuments)
			protected.Get("/documents/{document_id}/status", docHandler.GetDocumentStatus)
			protected.Get("/documents/{document_id}/download", docHandler.DownloadDocument)
			protected.Delete("/documents/{document_id}", docHandler.DeleteDocument)

			protected.Post("/chat/query", chatHandler.QueryNotebook)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log.With("component", "http")}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
