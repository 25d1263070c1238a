package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightsspeed/Rag-1/internal/embedding"
	"github.com/lightsspeed/Rag-1/internal/storage"
)

type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, fmt.Errorf("%w: connection refused", embedding.ErrEmbeddingService)
	}
	return make([]float32, storage.VectorDimension), nil
}

// fakeIndex serves pre-ranked results, honoring the limit.
type fakeIndex struct {
	results []*storage.ScoredChunk
	gotTopK int
	fail    bool
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, limit int) ([]*storage.ScoredChunk, error) {
	if f.fail {
		return nil, storage.ErrIndexUnavailable
	}
	f.gotTopK = limit
	if limit > len(f.results) {
		limit = len(f.results)
	}
	return f.results[:limit], nil
}

func scoredChunks(n int) []*storage.ScoredChunk {
	chunks := make([]*storage.ScoredChunk, n)
	for i := range chunks {
		chunks[i] = &storage.ScoredChunk{
			Chunk: &storage.Chunk{ID: fmt.Sprintf("chunk-%d", i), ChunkIndex: i},
			Score: 1.0 - float64(i)*0.1,
		}
	}
	return chunks
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	engine := NewEngine(&fakeEmbedder{}, &fakeIndex{})

	matches, err := engine.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err, "empty index is a valid state, not an error")
	assert.Empty(t, matches)
}

func TestRetrieve_TopKBoundAndOrder(t *testing.T) {
	index := &fakeIndex{results: scoredChunks(10)}
	engine := NewEngine(&fakeEmbedder{}, index)

	matches, err := engine.Retrieve(context.Background(), "question", 4)
	require.NoError(t, err)
	require.Len(t, matches, 4)

	for i, m := range matches {
		assert.Equal(t, i, m.Rank)
		if i > 0 {
			assert.LessOrEqual(t, m.Score, matches[i-1].Score, "matches must be ordered best first")
		}
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	index := &fakeIndex{results: scoredChunks(10)}
	engine := NewEngine(&fakeEmbedder{}, index)

	for _, topK := range []int{0, -3} {
		matches, err := engine.Retrieve(context.Background(), "question", topK)
		require.NoError(t, err)
		assert.Len(t, matches, DefaultTopK)
		assert.Equal(t, DefaultTopK, index.gotTopK)
	}
}

func TestRetrieve_FewerThanTopK(t *testing.T) {
	index := &fakeIndex{results: scoredChunks(2)}
	engine := NewEngine(&fakeEmbedder{}, index)

	matches, err := engine.Retrieve(context.Background(), "question", 5)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	engine := NewEngine(&fakeEmbedder{fail: true}, &fakeIndex{})

	_, err := engine.Retrieve(context.Background(), "question", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, embedding.ErrEmbeddingService))
	assert.Contains(t, err.Error(), "embedding")
}

func TestRetrieve_IndexFailure(t *testing.T) {
	engine := NewEngine(&fakeEmbedder{}, &fakeIndex{fail: true})

	_, err := engine.Retrieve(context.Background(), "question", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrIndexUnavailable))
	assert.Contains(t, err.Error(), "retrieval")
}
