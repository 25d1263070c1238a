// Package main provides the ragctl CLI for managing the PDF knowledge base.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lightsspeed/Rag-1/internal/answer"
	"github.com/lightsspeed/Rag-1/internal/chunker"
	"github.com/lightsspeed/Rag-1/internal/embedding"
	"github.com/lightsspeed/Rag-1/internal/extract"
	"github.com/lightsspeed/Rag-1/internal/ingest"
	"github.com/lightsspeed/Rag-1/internal/retrieval"
	"github.com/lightsspeed/Rag-1/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "PDF knowledge base management tool",
	Long:  "CLI tool for ingesting PDFs into the Qdrant index and querying them",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf> [file.pdf...]",
	Short: "Index one or more PDF files",
	Long: `Extracts, chunks, embeds, and indexes the given PDF files.

Each file is processed independently: a failure on one file is reported
and does not abort the rest.

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  CHUNK_SIZE     Chunk window size in characters (default: 1000)
  CHUNK_OVERLAP  Overlap between consecutive chunks (default: 100)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question over the indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every indexed chunk (irreversible)",
	RunE:  runClear,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index health and chunk count",
	RunE:  runStatus,
}

var topK int

func init() {
	queryCmd.Flags().IntVar(&topK, "top-k", retrieval.DefaultTopK, "number of chunks to retrieve")
	rootCmd.AddCommand(ingestCmd, queryCmd, clearCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func connectStore() (*storage.QdrantStorage, error) {
	qdrantHost := getEnv("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)

	store, err := storage.NewQdrantStorage(qdrantHost, qdrantPort)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	if err := store.EnsureCollection(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	return store, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	store, err := connectStore()
	if err != nil {
		return err
	}
	defer store.Close()

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)

	chk, err := chunker.New(getEnvInt("CHUNK_SIZE", chunker.DefaultChunkSize), getEnvInt("CHUNK_OVERLAP", chunker.DefaultOverlap))
	if err != nil {
		return fmt.Errorf("bad chunking configuration: %w", err)
	}

	var files []ingest.File
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, ingest.File{Filename: filepath.Base(path), Data: data})
	}

	pipeline := ingest.NewPipeline(extract.PDF{}, chk, embedder, store, slog.Default())
	result := pipeline.IngestAll(ctx, files)

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Files: %d/%d\n", result.Succeeded, len(result.Files))
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Second))

	failed := false
	for _, fr := range result.Files {
		if fr.Err != nil {
			failed = true
			fmt.Printf("  - %s: %v\n", fr.Filename, fr.Err)
		}
	}
	if failed && result.Succeeded == 0 {
		return fmt.Errorf("no files were ingested")
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := connectStore()
	if err != nil {
		return err
	}
	defer store.Close()

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)

	engine := retrieval.NewEngine(embedder, store)
	generator := answer.NewOpenAIGenerator(embeddingClient.Client(), getEnv("CHAT_MODEL", ""))
	assembler := answer.NewAssembler(engine, generator, getEnvInt("MAX_CONTEXT_CHARS", answer.DefaultMaxContextChars))

	result, err := assembler.Answer(ctx, args[0], nil, topK)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, m := range result.Sources {
			fmt.Printf("  - %s (page %d, score %.3f)\n", m.Chunk.Filename, m.Chunk.Page, m.Score)
		}
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	store, err := connectStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	fmt.Println("Database cleared")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := connectStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Health(ctx); err != nil {
		return fmt.Errorf("qdrant unhealthy: %w", err)
	}
	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to read collection info: %w", err)
	}

	fmt.Println("Qdrant healthy")
	fmt.Printf("  Collection: %s\n", storage.CollectionName)
	fmt.Printf("  Chunks: %d\n", count)
	return nil
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
