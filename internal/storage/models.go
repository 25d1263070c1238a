package storage

// Chunk is one indexed span of document text with its embedding vector.
// The vector collection is the entire durable state of the system; there
// is no separate document table.
type Chunk struct {
	ID         string    // Deterministic UUID derived from document ID + index
	DocumentID string    // Owning document, derived from the source filename
	ChunkIndex int       // Position in document (0, 1, 2...)
	Filename   string    // Source file the chunk was extracted from
	Page       int       // 1-based page on which the chunk starts
	Content    string    // Chunk text content
	Embedding  []float32 // 1536-dim vector (text-embedding-3-small)
}

// ScoredChunk is a search hit: a stored chunk plus its cosine similarity
// to the query vector (higher is more relevant).
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// CollectionName is the single Qdrant collection holding all chunks.
const CollectionName = "pdf_knowledge_base"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536
