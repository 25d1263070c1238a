// Package main provides the HTTP server for the PDF knowledge base.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lightsspeed/Rag-1/internal/answer"
	"github.com/lightsspeed/Rag-1/internal/chunker"
	"github.com/lightsspeed/Rag-1/internal/embedding"
	"github.com/lightsspeed/Rag-1/internal/extract"
	"github.com/lightsspeed/Rag-1/internal/ingest"
	"github.com/lightsspeed/Rag-1/internal/retrieval"
	"github.com/lightsspeed/Rag-1/internal/server"
	"github.com/lightsspeed/Rag-1/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Configuration from environment
	qdrantHost := getEnv("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)
	port := getEnv("PORT", "8080")
	chunkSize := getEnvInt("CHUNK_SIZE", chunker.DefaultChunkSize)
	chunkOverlap := getEnvInt("CHUNK_OVERLAP", chunker.DefaultOverlap)
	chatModel := getEnv("CHAT_MODEL", "")
	maxContextChars := getEnvInt("MAX_CONTEXT_CHARS", answer.DefaultMaxContextChars)

	// Initialize storage
	store, err := storage.NewQdrantStorage(qdrantHost, qdrantPort)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer store.Close()

	// Ensure collection exists
	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure collection: %v", err)
	}

	// Initialize embedding client
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0) // Use default batch size

	// Chunk size / overlap are validated here, before any request runs
	chk, err := chunker.New(chunkSize, chunkOverlap)
	if err != nil {
		log.Fatalf("bad chunking configuration: %v", err)
	}

	logger := slog.Default()
	pipeline := ingest.NewPipeline(extract.PDF{}, chk, embedder, store, logger)
	engine := retrieval.NewEngine(embedder, store)
	generator := answer.NewOpenAIGenerator(embeddingClient.Client(), chatModel)
	assembler := answer.NewAssembler(engine, generator, maxContextChars)

	srv := server.New(&server.Config{
		Ingestor: pipeline,
		Answerer: assembler,
		Index:    store,
		Models:   embeddingClient,
		Logger:   logger,
	})

	httpServer := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: srv.Handler(),
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	log.Printf("Starting HTTP server on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
