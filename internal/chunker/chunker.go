// Package chunker splits extracted document text into overlapping,
// bounded-size windows suitable for embedding and retrieval.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lightsspeed/Rag-1/internal/extract"
)

const (
	// DefaultChunkSize is the window width in characters.
	DefaultChunkSize = 1000

	// DefaultOverlap is the number of characters shared between
	// consecutive chunks.
	DefaultOverlap = 100
)

// ErrInvalidConfig indicates an unusable chunk size / overlap pair.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// Chunk is one retrievable window of document text.
type Chunk struct {
	Index  int    // Position in document (0, 1, 2...)
	Text   string // At most chunkSize characters
	Page   int    // 1-based page on which the chunk starts
	Offset int    // Character offset into the concatenated document text
}

// Chunker slides a fixed-size window with overlap across a document.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a Chunker. The overlap must be strictly smaller than the
// chunk size or the window cannot advance; that is rejected here, before
// any document is processed.
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidConfig, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk concatenates page texts (single newline between pages) and cuts
// the result into windows of chunkSize characters, each consecutive pair
// sharing overlap characters. A document shorter than one window yields
// exactly one chunk; the final chunk may be shorter than chunkSize.
// Pure function over its input.
func (c *Chunker) Chunk(pages []extract.Page) []Chunk {
	text, pageStarts := concatenate(pages)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	step := c.chunkSize - c.overlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Text:   string(runes[start:end]),
			Page:   pageAt(pages, pageStarts, start),
			Offset: start,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// concatenate joins page texts and records the rune offset at which each
// page begins, so chunks can be attributed to their starting page.
func concatenate(pages []extract.Page) (string, []int) {
	var b strings.Builder
	starts := make([]int, len(pages))
	offset := 0
	for i, p := range pages {
		if i > 0 {
			b.WriteByte('\n')
			offset++
		}
		starts[i] = offset
		b.WriteString(p.Text)
		offset += len([]rune(p.Text))
	}
	return b.String(), starts
}

// pageAt returns the 1-based number of the page containing the given
// rune offset.
func pageAt(pages []extract.Page, pageStarts []int, offset int) int {
	page := 1
	for i, start := range pageStarts {
		if offset < start {
			break
		}
		page = pages[i].Number
	}
	return page
}
