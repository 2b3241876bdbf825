package domain

import (
	"context"
	"io"
)

// Indexer reads page-level information from a PDF.
type Indexer interface {
	// PageCount returns the number of pages, failing with ErrDocumentRead
	// when data is not a readable PDF.
	PageCount(data []byte) (int, error)

	// PageTexts returns the raw text of every page. Pages that cannot be
	// extracted come back as empty strings.
	PageTexts(data []byte) ([]string, error)

	// ExtractText returns the trimmed, newline-joined text of all pages with
	// content, and false when there is none.
	ExtractText(data []byte) (string, bool)
}

// Planner splits a document into page-range chunks.
type Planner interface {
	Plan(data []byte, totalPages, pagesPerChunk int, autoChunk bool) ([]Chunk, error)
}

// Sink persists converted output.
type Sink interface {
	// WriteFile replaces name with content.
	WriteFile(ctx context.Context, name string, content []byte) error

	// Create opens name for incremental writing.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
}
