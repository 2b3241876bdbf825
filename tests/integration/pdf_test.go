//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdfconv/internal/testutil"
	"github.com/spherical/pdfconv/pkg/converter"
)

// TestSmartConversion runs a chunked conversion against the configured
// provider. It needs a real credential and network access.
func TestSmartConversion(t *testing.T) {
	client, err := converter.New(context.Background(), converter.Options{
		DotEnvFiles: []string{"../../.env"},
	})
	require.NoError(t, err)
	defer client.Close()

	provider := client.Config().Provider.Default
	envVar := map[string]string{
		"openai":     "OPENAI_API_KEY",
		"openrouter": "OPENROUTER_API_KEY",
		"groq":       "GROQ_API_KEY",
		"google":     "GEMINI_API_KEY",
	}[provider]
	if os.Getenv(envVar) == "" {
		t.Skipf("%s not set", envVar)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dir := t.TempDir()
	input := filepath.Join(dir, "table.pdf")
	output := filepath.Join(dir, "table.csv")
	require.NoError(t, os.WriteFile(input, testutil.BuildPDF([]string{
		"Region Units\nNorth 120\nSouth 95",
		"Region Units\nEast 210\nWest 80",
	}), 0o644))

	conv := client.Config().Conversion
	conv.MaxPagesPerChunk = 1
	conv.RemoveHeaderOnContinuation = true

	eventCh := make(chan converter.StreamEvent, 100)
	out, err := client.Convert(ctx, converter.Request{
		Input:      input,
		Output:     output,
		Conversion: &conv,
		Events:     eventCh,
	})
	close(eventCh)
	require.NoError(t, err)

	var chunksDone int
	for event := range eventCh {
		switch event.Type {
		case converter.EventChunkProcessing:
			t.Logf("%v", event.Payload)
		case converter.EventChunkComplete:
			chunksDone++
		case converter.EventChunkFailed:
			t.Errorf("Chunk failed: %v", event.Payload)
		}
	}

	assert.True(t, out.CompletedFully)
	assert.Equal(t, 2, chunksDone)
	assert.Contains(t, out.CSV, "North")
	assert.Contains(t, out.CSV, "West")
	assert.Equal(t, 1, strings.Count(strings.ToLower(out.CSV), "region"), "header appears once")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, out.CSV, string(data))
	t.Logf("CSV:\n%s", out.CSV)
}
