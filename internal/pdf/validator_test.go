package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdfconv/internal/domain"
)

func TestValidatePDFPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "statement.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4"), 0o644))

	v := NewValidator()
	assert.NoError(t, v.ValidatePDFPath(file))
	assert.ErrorIs(t, v.ValidatePDFPath(""), domain.ErrValidation)
	assert.ErrorIs(t, v.ValidatePDFPath(filepath.Join(dir, "missing.pdf")), domain.ErrValidation)
	assert.ErrorIs(t, v.ValidatePDFPath(dir), domain.ErrValidation)
}

func TestValidateContent(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateContent([]byte("%PDF-1.7\n...")))
	assert.NoError(t, v.ValidateContent([]byte("\xef\xbb\xbf%PDF-1.4")))
	assert.ErrorIs(t, v.ValidateContent(nil), domain.ErrValidation)
	assert.ErrorIs(t, v.ValidateContent([]byte("PK\x03\x04 zip")), domain.ErrValidation)
}

func TestLoadDocument_Stdin(t *testing.T) {
	doc, err := LoadDocument(StdinName, strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)
	assert.Equal(t, StdinName, doc.Name)
	assert.Equal(t, []byte("%PDF-1.4 body"), doc.Data)
}

func TestLoadDocument_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "in.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4 body"), 0o644))

	doc, err := LoadDocument(file, nil)
	require.NoError(t, err)
	assert.Equal(t, file, doc.Name)

	_, err = LoadDocument(filepath.Join(t.TempDir(), "nope.pdf"), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
