package pdf

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/go-fitz"
	ledongthuc "github.com/ledongthuc/pdf"
)

// Text backend names accepted in configuration.
const (
	BackendNative = "native"
	BackendMuPDF  = "mupdf"
)

// TextBackend extracts raw per-page text. A page whose extraction fails is
// returned as an empty string; only an unreadable document is an error.
type TextBackend interface {
	PageTexts(data []byte) ([]string, error)
}

// NewTextBackend returns the backend registered under name.
func NewTextBackend(name string) (TextBackend, error) {
	switch name {
	case "", BackendNative:
		return NewNativeText(), nil
	case BackendMuPDF:
		return NewMuPDFText(), nil
	default:
		return nil, fmt.Errorf("unknown text backend %q (want %s or %s)", name, BackendNative, BackendMuPDF)
	}
}

// NativeText extracts text with the pure Go ledongthuc/pdf reader.
type NativeText struct{}

// NewNativeText creates a pure Go text backend.
func NewNativeText() *NativeText {
	return &NativeText{}
}

// PageTexts implements TextBackend.
func (NativeText) PageTexts(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("open pdf: %v", r)
		}
	}()

	r, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, nativePageText(r, i))
	}
	return pages, nil
}

// nativePageText swallows both errors and panics from malformed content streams.
func nativePageText(r *ledongthuc.Reader, num int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	p := r.Page(num)
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// MuPDFText extracts text through MuPDF via go-fitz. It handles more font
// encodings than the native reader at the cost of a C dependency.
type MuPDFText struct{}

// NewMuPDFText creates a MuPDF text backend.
func NewMuPDFText() *MuPDFText {
	return &MuPDFText{}
}

// PageTexts implements TextBackend.
func (MuPDFText) PageTexts(data []byte) ([]string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		text, err := doc.Text(i)
		if err != nil {
			text = ""
		}
		pages = append(pages, text)
	}
	return pages, nil
}
