package llm

import (
	"encoding/base64"
	"strings"
)

// PDFMimeType is the media type of chunk payloads.
const PDFMimeType = "application/pdf"

// PartKind tags a Part of a structured message.
type PartKind string

const (
	PartText     PartKind = "text"
	PartImageURL PartKind = "image_url"
	PartBinary   PartKind = "binary"
)

// Part is one element of a structured message.
type Part struct {
	Kind     PartKind
	Text     string
	URL      string
	MIMEType string
	Data     []byte
}

// Message is the outbound request for one chunk. A structured message has
// Parts; a flattened one carries everything in Text.
type Message struct {
	Text  string
	Parts []Part
}

// Structured reports whether the message is multi-part.
func (m Message) Structured() bool {
	return len(m.Parts) > 0
}

// TextExtractor pulls plain text out of a PDF.
type TextExtractor interface {
	ExtractText(data []byte) (string, bool)
}

// MessageBuilder assembles prompts and chunk payloads into messages.
type MessageBuilder struct {
	text TextExtractor
}

// NewMessageBuilder creates a builder. text may be nil when text extraction
// is never requested.
func NewMessageBuilder(text TextExtractor) *MessageBuilder {
	return &MessageBuilder{text: text}
}

// BuildPrompt returns the conversion instructions for one chunk. label
// describes the chunk's pages and is empty for a whole-document request.
func BuildPrompt(label string, isFirstChunk, removeHeaderOnContinuation bool) string {
	var sb strings.Builder
	sb.WriteString("Attached is a spreadsheet in PDF")
	if label != "" {
		sb.WriteString(" (")
		sb.WriteString(label)
		sb.WriteString(")")
	}
	sb.WriteString(". Convert it to CSV format. ")
	sb.WriteString("Return CSV only, no extra text: no commentary, annotation or explanation. Just the CSV.")

	if removeHeaderOnContinuation && !isFirstChunk {
		sb.WriteString(" Do not include the header row, this chunk continues a previous one.")
	}
	return sb.String()
}

// Build creates the message for a chunk. Structured form is used only when
// the caller asks for it and the provider supports it; otherwise everything
// is flattened into a single string.
func (b *MessageBuilder) Build(prompt string, chunk []byte, d Descriptor, useStructured, extractText bool) Message {
	var extracted string
	if extractText && b.text != nil {
		if text, ok := b.text.ExtractText(chunk); ok {
			extracted = text
		}
	}

	if useStructured && d.SupportsStructuredMessages {
		parts := []Part{{Kind: PartText, Text: prompt}}
		switch {
		case extracted != "":
			parts = append(parts, Part{Kind: PartText, Text: extracted})
		case d.BinaryParts:
			parts = append(parts, Part{Kind: PartBinary, MIMEType: PDFMimeType, Data: chunk})
		default:
			parts = append(parts, Part{Kind: PartImageURL, URL: DataURI(chunk)})
		}
		return Message{Parts: parts}
	}

	if extracted != "" {
		return Message{Text: prompt + "\n\nExtracted text:\n" + extracted}
	}
	return Message{Text: prompt + "\n\nAttached PDF (base64):\n" + DataURI(chunk)}
}

// DataURI encodes a PDF as a base64 data URI.
func DataURI(data []byte) string {
	return "data:" + PDFMimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
