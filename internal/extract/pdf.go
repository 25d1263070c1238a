// Package extract pulls ordered page text out of uploaded PDF files.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtraction indicates a PDF could not be read or yielded no text.
// Callers skip the offending file and continue with the rest of a batch.
var ErrExtraction = errors.New("pdf extraction failed")

// Page holds the extracted text of a single PDF page.
type Page struct {
	Number int // 1-based page number
	Text   string
}

var spaceRuns = regexp.MustCompile(`[ \t]+`)

// PDF is the production page extractor backed by ledongthuc/pdf.
// The ingestion pipeline consumes it through an interface so tests can
// substitute an in-memory double.
type PDF struct{}

// ExtractPages implements the pipeline's Extractor contract.
func (PDF) ExtractPages(data []byte) ([]Page, error) {
	return ExtractPages(data)
}

// ExtractPages reads every page of a PDF and returns its plain text in
// document order. Pages that decode to empty text are kept out of the
// result; a document with no extractable text at all (image-only or
// corrupted) returns ErrExtraction.
func ExtractPages(data []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrExtraction, err)
	}

	var pages []Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrExtraction, i, err)
		}
		text = normalizeWhitespace(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", ErrExtraction)
	}
	return pages, nil
}

// normalizeWhitespace collapses runs of spaces and tabs left behind by
// PDF text positioning.
func normalizeWhitespace(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
