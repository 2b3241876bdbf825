package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/spherical/pdfconv/internal/domain"
)

// Planner implements domain.Planner using pdfcpu to rebuild each page range
// as a standalone PDF.
type Planner struct{}

// NewPlanner creates a chunk planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan partitions data into contiguous chunks of at most pagesPerChunk pages.
// When chunking does not apply the whole document is returned as one chunk
// holding the original bytes.
func (p *Planner) Plan(data []byte, totalPages, pagesPerChunk int, autoChunk bool) ([]domain.Chunk, error) {
	if totalPages < 1 {
		return nil, domain.ValidationError(fmt.Sprintf("document must have at least one page, got %d", totalPages), nil)
	}
	if pagesPerChunk < 1 {
		return nil, domain.ValidationError(fmt.Sprintf("pages per chunk must be at least 1, got %d", pagesPerChunk), nil)
	}

	if !autoChunk || totalPages <= pagesPerChunk {
		return []domain.Chunk{{
			Data:       data,
			StartPage:  1,
			EndPage:    totalPages,
			TotalPages: totalPages,
		}}, nil
	}

	ranges := PageRanges(totalPages, pagesPerChunk)
	chunks := make([]domain.Chunk, 0, len(ranges))
	for _, r := range ranges {
		var buf bytes.Buffer
		sel := []string{pageSelection(r[0], r[1])}
		if err := api.Trim(bytes.NewReader(data), &buf, sel, relaxedConfig()); err != nil {
			return nil, domain.DocumentReadError(fmt.Sprintf("failed to extract pages %d-%d", r[0], r[1]), err)
		}
		chunks = append(chunks, domain.Chunk{
			Data:       buf.Bytes(),
			StartPage:  r[0],
			EndPage:    r[1],
			TotalPages: totalPages,
		})
	}
	return chunks, nil
}

// PageRanges returns the inclusive [start, end] ranges that cover
// 1..totalPages in steps of pagesPerChunk.
func PageRanges(totalPages, pagesPerChunk int) [][2]int {
	if totalPages < 1 || pagesPerChunk < 1 {
		return nil
	}
	ranges := make([][2]int, 0, (totalPages+pagesPerChunk-1)/pagesPerChunk)
	for start := 1; start <= totalPages; start += pagesPerChunk {
		end := min(start+pagesPerChunk-1, totalPages)
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
