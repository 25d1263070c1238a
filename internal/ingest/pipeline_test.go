package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightsspeed/Rag-1/internal/chunker"
	"github.com/lightsspeed/Rag-1/internal/extract"
	"github.com/lightsspeed/Rag-1/internal/storage"
)

// textExtractor treats file data as plain text, one page per line break
// pair, standing in for the real PDF extractor.
type textExtractor struct{}

func (textExtractor) ExtractPages(data []byte) ([]extract.Page, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("%w: no extractable text", extract.ErrExtraction)
	}
	var pages []extract.Page
	for i, part := range strings.Split(text, "\n\n") {
		pages = append(pages, extract.Page{Number: i + 1, Text: part})
	}
	return pages, nil
}

// fakeEmbedder returns fixed-dimension vectors and records inputs.
type fakeEmbedder struct {
	calls [][]string
	fail  bool
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.fail {
		return nil, errors.New("embedding model unreachable")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, storage.VectorDimension)
		vectors[i][0] = float32(i)
	}
	return vectors, nil
}

// fakeIndex stores chunks keyed by ID, mirroring upsert overwrite semantics.
type fakeIndex struct {
	points map[string]*storage.Chunk
	fail   bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: make(map[string]*storage.Chunk)}
}

func (f *fakeIndex) UpsertChunks(ctx context.Context, chunks []*storage.Chunk) error {
	if f.fail {
		return storage.ErrIndexUnavailable
	}
	for _, chunk := range chunks {
		f.points[chunk.ID] = chunk
	}
	return nil
}

func newTestPipeline(t *testing.T, embedder Embedder, index Index) *Pipeline {
	t.Helper()
	chk, err := chunker.New(100, 20)
	require.NoError(t, err)
	return NewPipeline(textExtractor{}, chk, embedder, index, nil)
}

func TestIngestFile_Success(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := newFakeIndex()
	p := newTestPipeline(t, embedder, index)

	data := []byte(strings.Repeat("sentence about photosynthesis. ", 12))
	result := p.IngestFile(context.Background(), "bio.pdf", data)

	require.NoError(t, result.Err)
	assert.Equal(t, "bio.pdf", result.Filename)
	assert.NotEmpty(t, result.DocumentID)
	assert.Greater(t, result.ChunkCount, 1)
	assert.Len(t, index.points, result.ChunkCount)

	for _, chunk := range index.points {
		assert.Equal(t, result.DocumentID, chunk.DocumentID)
		assert.Equal(t, "bio.pdf", chunk.Filename)
		assert.Len(t, chunk.Embedding, storage.VectorDimension)
	}
}

func TestIngestFile_EmbedsChunksInOrder(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := newFakeIndex()
	p := newTestPipeline(t, embedder, index)

	result := p.IngestFile(context.Background(), "doc.pdf", []byte(strings.Repeat("ordered text here. ", 20)))
	require.NoError(t, result.Err)
	require.Len(t, embedder.calls, 1)

	// The i-th embedded text must belong to the chunk with index i.
	byIndex := make(map[int]*storage.Chunk)
	for _, chunk := range index.points {
		byIndex[chunk.ChunkIndex] = chunk
	}
	for i, text := range embedder.calls[0] {
		require.Contains(t, byIndex, i)
		assert.Equal(t, text, byIndex[i].Content)
		assert.Equal(t, float32(i), byIndex[i].Embedding[0])
	}
}

func TestIngestFile_Idempotent(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := newFakeIndex()
	p := newTestPipeline(t, embedder, index)

	data := []byte(strings.Repeat("identical content every time. ", 15))
	first := p.IngestFile(context.Background(), "same.pdf", data)
	require.NoError(t, first.Err)
	countAfterFirst := len(index.points)

	second := p.IngestFile(context.Background(), "same.pdf", data)
	require.NoError(t, second.Err)

	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, countAfterFirst, len(index.points), "re-ingestion must overwrite, not duplicate")
}

func TestIngestFile_EmbeddingFailureWritesNothing(t *testing.T) {
	embedder := &fakeEmbedder{fail: true}
	index := newFakeIndex()
	p := newTestPipeline(t, embedder, index)

	result := p.IngestFile(context.Background(), "doc.pdf", []byte("some text"))
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "embedding")
	assert.Empty(t, index.points, "no partial index writes on embedding failure")
}

func TestIngestAll_FailureIsolation(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := newFakeIndex()
	p := newTestPipeline(t, embedder, index)

	files := []File{
		{Filename: "good.pdf", Data: []byte(strings.Repeat("valid text. ", 20))},
		{Filename: "empty.pdf", Data: []byte("   ")},
		{Filename: "also-good.pdf", Data: []byte(strings.Repeat("more valid text. ", 20))},
	}

	result := p.IngestAll(context.Background(), files)

	require.Len(t, result.Files, 3)
	assert.Equal(t, 2, result.Succeeded)
	assert.NoError(t, result.Files[0].Err)
	assert.Error(t, result.Files[1].Err)
	assert.ErrorIs(t, result.Files[1].Err, extract.ErrExtraction)
	assert.NoError(t, result.Files[2].Err, "failure on one file must not abort the rest")
	assert.Equal(t, result.Files[0].ChunkCount+result.Files[2].ChunkCount, result.TotalChunks)
}

func TestDocumentID_Stable(t *testing.T) {
	assert.Equal(t, DocumentID("report.pdf"), DocumentID("report.pdf"))
	assert.NotEqual(t, DocumentID("report.pdf"), DocumentID("other.pdf"))
}

func TestIngestFile_IndexFailure(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := newFakeIndex()
	index.fail = true
	p := newTestPipeline(t, embedder, index)

	result := p.IngestFile(context.Background(), "doc.pdf", []byte("some text"))
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, storage.ErrIndexUnavailable)
	assert.Contains(t, result.Err.Error(), "indexing")
}
