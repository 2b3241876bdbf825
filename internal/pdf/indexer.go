// Package pdf reads page counts and page text from PDF documents and splits
// them into standalone page-range chunks.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/spherical/pdfconv/internal/domain"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

// Indexer implements domain.Indexer with pdfcpu for structure and a
// TextBackend for page text.
type Indexer struct {
	text TextBackend
}

// NewIndexer creates an indexer. A nil backend selects the pure Go one.
func NewIndexer(text TextBackend) *Indexer {
	if text == nil {
		text = NewNativeText()
	}
	return &Indexer{text: text}
}

// PageCount returns the number of pages in data.
func (ix *Indexer) PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, domain.DocumentReadError("document is empty", nil)
	}

	n, err := api.PageCount(bytes.NewReader(data), relaxedConfig())
	if err != nil {
		return 0, domain.DocumentReadError("failed to read PDF", err)
	}
	if n == 0 {
		return 0, domain.DocumentReadError("PDF has no pages", nil)
	}
	return n, nil
}

// PageTexts returns the raw text of every page in order.
func (ix *Indexer) PageTexts(data []byte) ([]string, error) {
	pages, err := ix.text.PageTexts(data)
	if err != nil {
		return nil, domain.DocumentReadError("failed to extract text", err)
	}
	return pages, nil
}

// ExtractText joins the trimmed text of every page that has content. It
// never fails: unreadable documents and pages count as empty.
func (ix *Indexer) ExtractText(data []byte) (string, bool) {
	pages, err := ix.text.PageTexts(data)
	if err != nil {
		return "", false
	}

	var kept []string
	for _, p := range pages {
		if p != "" {
			kept = append(kept, p)
		}
	}
	text := strings.TrimSpace(strings.Join(kept, "\n"))
	if text == "" {
		return "", false
	}
	return text, true
}

// relaxedConfig returns a pdfcpu configuration tolerant of the minor PDF format
// violations common in exported spreadsheets.
func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// pageSelection renders an inclusive 1-indexed page range for pdfcpu.
func pageSelection(start, end int) string {
	if start == end {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}
