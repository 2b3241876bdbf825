package domain

import (
	"fmt"
	"time"
)

// Document represents the source PDF being processed
type Document struct {
	Name       string // file path, or "-" for stdin
	Data       []byte
	TotalPages int
}

// Chunk is a contiguous page range of a document, packaged as a standalone PDF.
// Pages are 1-indexed and inclusive.
type Chunk struct {
	Data       []byte
	StartPage  int
	EndPage    int
	TotalPages int
}

// PageRange returns a human-readable description of the chunk's pages.
func (c Chunk) PageRange() string {
	return fmt.Sprintf("pages %d-%d of %d", c.StartPage, c.EndPage, c.TotalPages)
}

// Pages returns the number of pages in the chunk.
func (c Chunk) Pages() int {
	return c.EndPage - c.StartPage + 1
}

// ConversionConfig controls a single conversion call. It is built once per
// call and never mutated.
type ConversionConfig struct {
	MaxPagesPerChunk           int  `yaml:"max_pages_per_chunk"`
	AutoChunk                  bool `yaml:"auto_chunk"`
	RemoveHeaderOnContinuation bool `yaml:"remove_header_on_continuation"`
	MaxRetries                 int  `yaml:"max_retries"`
	UseStructuredMessages      bool `yaml:"use_structured_messages"`
	ExtractText                bool `yaml:"extract_text"`
}

// DefaultConversionConfig returns the canonical defaults.
func DefaultConversionConfig() ConversionConfig {
	return ConversionConfig{
		MaxPagesPerChunk:           10,
		AutoChunk:                  true,
		RemoveHeaderOnContinuation: false,
		MaxRetries:                 3,
		UseStructuredMessages:      true,
		ExtractText:                false,
	}
}

// Validate checks the configuration for errors.
func (c ConversionConfig) Validate() error {
	if c.MaxPagesPerChunk < 1 {
		return ValidationError(fmt.Sprintf("max pages per chunk must be at least 1, got %d", c.MaxPagesPerChunk), nil)
	}
	if c.MaxRetries < 0 {
		return ValidationError(fmt.Sprintf("max retries cannot be negative, got %d", c.MaxRetries), nil)
	}
	return nil
}

// ChunkResult is the outcome of converting one chunk: either CSV or a failure.
type ChunkResult struct {
	Index int
	CSV   string
	Err   error
}

// ConversionOutcome is the result of a batch conversion.
type ConversionOutcome struct {
	CSV            string
	CompletedFully bool
	ChunksTotal    int
	ChunksDone     int
	FailedChunk    *ChunkResult
	RunID          string
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart           EventType = "start"
	EventChunkProcessing EventType = "chunk_processing"
	EventChunkComplete   EventType = "chunk_complete"
	EventChunkFailed     EventType = "chunk_failed"
	EventPartialSaved    EventType = "partial_saved"
	EventComplete        EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	RunID      string      `json:"run_id,omitempty"`
	ChunkIndex int         `json:"chunk_index"`
	ChunkTotal int         `json:"chunk_total,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
