package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/openai/openai-go"
)

const (
	// Model is the OpenAI model used for generating embeddings. Indexing
	// and querying must use the same model or similarity scores between
	// stored and query vectors are meaningless.
	Model = "text-embedding-3-small"

	// Dimension is the vector dimension for text-embedding-3-small.
	// This matches storage.VectorDimension (1536).
	Dimension = 1536

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	// OpenAI supports up to 2048 texts per batch, but smaller batches reduce TPM pressure.
	DefaultBatchSize = 500
)

// ErrEmbeddingService indicates the embedding model was unreachable or
// returned a malformed response (wrong dimension, non-numeric values).
var ErrEmbeddingService = errors.New("embedding service error")

// Embedder generates embeddings using OpenAI's text-embedding-3-small model,
// batching requests for efficiency. It applies no retry policy of its own;
// retries, if desired, belong to the calling layer.
type Embedder struct {
	client    *Client
	batchSize int
}

// NewEmbedder creates a new Embedder with the given client and optional batch size.
// If batchSize is 0, DefaultBatchSize (500) is used.
func NewEmbedder(client *Client, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Embedder{
		client:    client,
		batchSize: batchSize,
	}
}

// EmbedText generates an embedding for a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates embeddings for the given texts, preserving input
// order. Returns [][]float32 to match storage.Chunk.Embedding.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	allVectors := make([][]float32, 0, len(texts))

	// Process in batches
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		vectors, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		allVectors = append(allVectors, vectors...)
	}

	return allVectors, nil
}

// embedBatch generates embeddings for a single batch and validates the
// response shape before handing vectors to the caller.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: Model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbeddingService, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != Dimension {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				ErrEmbeddingService, i, len(data.Embedding), Dimension)
		}
		vector, err := toFloat32(data.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: embedding %d: %v", ErrEmbeddingService, i, err)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) ([]float32, error) {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite value at index %d", i)
		}
		f32[i] = float32(v)
	}
	return f32, nil
}
