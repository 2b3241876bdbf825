package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/internal/testutil"
)

func TestPageRanges_Coverage(t *testing.T) {
	for total := 1; total <= 25; total++ {
		for per := 1; per <= 12; per++ {
			ranges := PageRanges(total, per)
			require.NotEmpty(t, ranges)

			next := 1
			for _, r := range ranges {
				assert.Equal(t, next, r[0], "total=%d per=%d: ranges must be contiguous", total, per)
				assert.LessOrEqual(t, r[0], r[1], "total=%d per=%d: empty range", total, per)
				assert.LessOrEqual(t, r[1]-r[0]+1, per, "total=%d per=%d: range too long", total, per)
				next = r[1] + 1
			}
			assert.Equal(t, total+1, next, "total=%d per=%d: ranges must end at the last page", total, per)
		}
	}
}

func TestPageRanges_Invalid(t *testing.T) {
	assert.Nil(t, PageRanges(0, 3))
	assert.Nil(t, PageRanges(3, 0))
}

func TestPlan_SingleChunkKeepsOriginalBytes(t *testing.T) {
	data := []byte("%PDF-1.4 not parsed on this path")
	planner := NewPlanner()

	tests := []struct {
		name      string
		total     int
		per       int
		autoChunk bool
	}{
		{name: "fits in one chunk", total: 5, per: 10, autoChunk: true},
		{name: "exactly the budget", total: 10, per: 10, autoChunk: true},
		{name: "auto chunk disabled", total: 40, per: 10, autoChunk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := planner.Plan(data, tt.total, tt.per, tt.autoChunk)
			require.NoError(t, err)
			require.Len(t, chunks, 1)
			assert.Equal(t, data, chunks[0].Data)
			assert.Equal(t, 1, chunks[0].StartPage)
			assert.Equal(t, tt.total, chunks[0].EndPage)
			assert.Equal(t, tt.total, chunks[0].TotalPages)
		})
	}
}

func TestPlan_SplitsIntoStandaloneDocuments(t *testing.T) {
	data := testutil.BuildPDF(testutil.NumberedPages(7))
	indexer := NewIndexer(nil)

	total, err := indexer.PageCount(data)
	require.NoError(t, err)
	require.Equal(t, 7, total)

	chunks, err := NewPlanner().Plan(data, total, 3, true)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	want := [][2]int{{1, 3}, {4, 6}, {7, 7}}
	for i, c := range chunks {
		assert.Equal(t, want[i][0], c.StartPage)
		assert.Equal(t, want[i][1], c.EndPage)
		assert.Equal(t, 7, c.TotalPages)

		n, err := indexer.PageCount(c.Data)
		require.NoError(t, err, "chunk %d must open standalone", i)
		assert.Equal(t, c.Pages(), n)
	}

	text, ok := indexer.ExtractText(chunks[1].Data)
	require.True(t, ok)
	assert.Contains(t, text, "Page 4")
	assert.Contains(t, text, "Page 6")
	assert.NotContains(t, text, "Page 7")
}

func TestPlan_Validation(t *testing.T) {
	planner := NewPlanner()

	_, err := planner.Plan(nil, 0, 3, true)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = planner.Plan(nil, 5, 0, true)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPlan_UnreadableDocument(t *testing.T) {
	_, err := NewPlanner().Plan([]byte("%PDF-garbage"), 6, 2, true)
	assert.ErrorIs(t, err, domain.ErrDocumentRead)
}

func TestChunkPageRange(t *testing.T) {
	c := domain.Chunk{StartPage: 4, EndPage: 6, TotalPages: 7}
	assert.Equal(t, "pages 4-6 of 7", c.PageRange())
	assert.Equal(t, 3, c.Pages())
}
