package extract

import (
	"regexp"
	"strings"

	"github.com/spherical/pdfconv/internal/domain"
)

// fence matches markdown code fence markers, with or without a csv tag.
var fence = regexp.MustCompile("(?i)```(?:csv)?")

// CleanResponse turns raw model output into CSV text. Fence markers and
// surrounding whitespace are removed; nothing left is an error.
func CleanResponse(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", domain.EmptyResponseError("model returned an empty response")
	}

	cleaned := strings.TrimSpace(fence.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return "", domain.EmptyResponseError("model returned no CSV after removing code fences")
	}
	return cleaned, nil
}

// RemoveHeaderRow drops the first line when more lines follow it.
func RemoveHeaderRow(csv string) string {
	_, rest, found := strings.Cut(csv, "\n")
	if !found {
		return csv
	}
	return rest
}
