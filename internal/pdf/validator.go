package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spherical/pdfconv/internal/domain"
)

// StdinName is the input name that selects standard input.
const StdinName = "-"

// maxSize is the size above which a warning is logged; larger files are still accepted.
const maxSize = 100 * 1024 * 1024

var pdfMagic = []byte("%PDF-")

// Validator provides input validation for PDF files
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePDFPath validates that a file path is valid and points to a readable file
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	return nil
}

// ValidateContent checks that data starts like a PDF.
func (v *Validator) ValidateContent(data []byte) error {
	if len(data) == 0 {
		return domain.ValidationError("document is empty", nil)
	}
	// The header may be preceded by junk bytes; readers accept it within the first KB.
	head := data[:min(len(data), 1024)]
	if !bytes.Contains(head, pdfMagic) {
		return domain.ValidationError("input is not a PDF (missing %PDF- header)", nil)
	}
	return nil
}

// LoadDocument reads name from disk, or from stdin when name is "-".
func LoadDocument(name string, stdin io.Reader) (*domain.Document, error) {
	v := NewValidator()

	var data []byte
	var err error
	if name == StdinName {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, domain.IOError("failed to read stdin", err)
		}
	} else {
		if err := v.ValidatePDFPath(name); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(name)
		if err != nil {
			return nil, domain.IOError(fmt.Sprintf("cannot open file: %s", name), err)
		}
	}

	if err := v.ValidateContent(data); err != nil {
		return nil, err
	}

	return &domain.Document{Name: name, Data: data}, nil
}

// IsLarge reports whether data exceeds the size worth warning about.
func IsLarge(data []byte) bool {
	return len(data) > maxSize
}
