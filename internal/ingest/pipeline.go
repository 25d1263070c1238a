// Package ingest orchestrates indexing of uploaded documents:
// extract -> chunk -> embed -> upsert.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lightsspeed/Rag-1/internal/chunker"
	"github.com/lightsspeed/Rag-1/internal/extract"
	"github.com/lightsspeed/Rag-1/internal/storage"
)

// documentNamespace seeds deterministic document and chunk UUIDs, so
// re-ingesting the same file produces the same point IDs and overwrites
// instead of duplicating.
var documentNamespace = uuid.MustParse("9aa22b36-1d8a-4bfb-9b5d-0e6f3c1d74a2")

// Extractor turns raw file bytes into ordered page texts. The production
// implementation is extract.PDF.
type Extractor interface {
	ExtractPages(data []byte) ([]extract.Page, error)
}

// Embedder converts chunk texts into fixed-dimension vectors, preserving
// input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Index persists chunks with their embeddings.
type Index interface {
	UpsertChunks(ctx context.Context, chunks []*storage.Chunk) error
}

// File is one uploaded document awaiting ingestion.
type File struct {
	Filename string
	Data     []byte
}

// FileResult reports the outcome of ingesting a single file.
type FileResult struct {
	Filename   string
	DocumentID string
	ChunkCount int
	Err        error
}

// BatchResult aggregates per-file outcomes for one upload request.
type BatchResult struct {
	Files       []FileResult
	TotalChunks int
	Succeeded   int
	Duration    time.Duration
}

// Pipeline runs the full ingestion flow for uploaded files.
type Pipeline struct {
	extractor Extractor
	chunker   *chunker.Chunker
	embedder  Embedder
	index     Index
	logger    *slog.Logger
}

// NewPipeline creates an ingestion pipeline with the given components.
func NewPipeline(extractor Extractor, c *chunker.Chunker, embedder Embedder, index Index, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		chunker:   c,
		embedder:  embedder,
		index:     index,
		logger:    logger,
	}
}

// IngestAll processes each uploaded file independently: a failure on one
// file is recorded in its result and never aborts the rest of the batch.
func (p *Pipeline) IngestAll(ctx context.Context, files []File) *BatchResult {
	start := time.Now()
	result := &BatchResult{}

	for _, f := range files {
		fr := p.IngestFile(ctx, f.Filename, f.Data)
		if fr.Err != nil {
			p.logger.Warn("Failed to ingest file", "filename", f.Filename, "error", fr.Err)
		} else {
			result.Succeeded++
			result.TotalChunks += fr.ChunkCount
		}
		result.Files = append(result.Files, fr)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"successful", result.Succeeded,
		"failed", len(result.Files)-result.Succeeded,
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result
}

// IngestFile runs the pipeline for a single uploaded document. No partial
// index writes happen for the file: chunks reach the store only after the
// whole embedding batch succeeded.
func (p *Pipeline) IngestFile(ctx context.Context, filename string, data []byte) FileResult {
	result := FileResult{Filename: filename}

	pages, err := p.extractor.ExtractPages(data)
	if err != nil {
		result.Err = fmt.Errorf("extraction: %w", err)
		return result
	}
	p.logger.Debug("Extracted document", "filename", filename, "pages", len(pages))

	chunks := p.chunker.Chunk(pages)
	if len(chunks) == 0 {
		result.Err = fmt.Errorf("extraction: no chunkable text in %s", filename)
		return result
	}
	p.logger.Debug("Chunked document", "filename", filename, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		result.Err = fmt.Errorf("embedding: %w", err)
		return result
	}

	docID := DocumentID(filename)
	stored := make([]*storage.Chunk, len(chunks))
	for i, chunk := range chunks {
		stored[i] = &storage.Chunk{
			ID:         chunkID(docID, chunk.Index),
			DocumentID: docID,
			ChunkIndex: chunk.Index,
			Filename:   filename,
			Page:       chunk.Page,
			Content:    chunk.Text,
			Embedding:  vectors[i],
		}
	}

	if err := p.index.UpsertChunks(ctx, stored); err != nil {
		result.Err = fmt.Errorf("indexing: %w", err)
		return result
	}

	result.DocumentID = docID
	result.ChunkCount = len(chunks)
	p.logger.Info("Ingested document", "filename", filename, "chunks", len(chunks))
	return result
}

// DocumentID derives the stable document identifier from the filename.
func DocumentID(filename string) string {
	return uuid.NewSHA1(documentNamespace, []byte(filename)).String()
}

// chunkID derives a stable chunk identifier from the document ID and the
// chunk's sequence number.
func chunkID(docID string, index int) string {
	return uuid.NewSHA1(documentNamespace, fmt.Appendf(nil, "%s:%d", docID, index)).String()
}
