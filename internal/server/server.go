// Package server exposes the ingestion and query pipelines over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lightsspeed/Rag-1/internal/answer"
	"github.com/lightsspeed/Rag-1/internal/ingest"
)

// Ingestor processes uploaded files into the index.
type Ingestor interface {
	IngestAll(ctx context.Context, files []ingest.File) *ingest.BatchResult
}

// Answerer produces a grounded answer with sources for a question.
type Answerer interface {
	Answer(ctx context.Context, question string, history []answer.Turn, topK int) (*answer.Result, error)
}

// Index is the administrative surface of the vector store.
type Index interface {
	Health(ctx context.Context) error
	Count(ctx context.Context) (uint64, error)
	Clear(ctx context.Context) error
}

// ModelService reports reachability of the embedding/generation backend.
type ModelService interface {
	Health(ctx context.Context) error
}

// Server wires HTTP handlers to the pipeline components.
type Server struct {
	ingestor Ingestor
	answerer Answerer
	index    Index
	models   ModelService
	logger   *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Ingestor Ingestor
	Answerer Answerer
	Index    Index
	Models   ModelService
	Logger   *slog.Logger
}

// New creates a Server from its dependencies.
func New(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ingestor: cfg.Ingestor,
		answerer: cfg.Answerer,
		index:    cfg.Index,
		models:   cfg.Models,
		logger:   logger,
	}
}

// Handler returns the route mux for the HTTP API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload-pdfs", s.handleUpload)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("DELETE /clear-database", s.handleClear)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}
