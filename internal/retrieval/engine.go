// Package retrieval turns a natural-language question into a ranked set
// of relevant chunks from the vector index.
package retrieval

import (
	"context"
	"fmt"

	"github.com/lightsspeed/Rag-1/internal/storage"
)

// DefaultTopK is used when the caller supplies a non-positive top_k.
const DefaultTopK = 3

// Embedder embeds a query with the same model used at indexing time.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Index performs similarity search over stored chunks.
type Index interface {
	Search(ctx context.Context, embedding []float32, limit int) ([]*storage.ScoredChunk, error)
}

// Match is one retrieved chunk with its similarity score and rank
// (0 is the best match).
type Match struct {
	Chunk *storage.Chunk
	Score float64
	Rank  int
}

// Engine retrieves relevant chunks for a question.
type Engine struct {
	embedder Embedder
	index    Index
}

// NewEngine creates a retrieval engine over the given embedder and index.
func NewEngine(embedder Embedder, index Index) *Engine {
	return &Engine{embedder: embedder, index: index}
}

// Retrieve embeds the question and returns up to topK matches ordered
// best first, exactly as the store ranks them. An empty index returns an
// empty slice; downstream generation handles "no context available".
func (e *Engine) Retrieve(ctx context.Context, question string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := e.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}

	scored, err := e.index.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}

	matches := make([]Match, len(scored))
	for i, sc := range scored {
		matches[i] = Match{Chunk: sc.Chunk, Score: sc.Score, Rank: i}
	}
	return matches, nil
}
