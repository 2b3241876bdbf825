// Package sink persists converted CSV to the local filesystem or S3.
package sink

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spherical/pdfconv/internal/domain"
)

// FileSink writes output files to the local filesystem.
type FileSink struct {
	perm os.FileMode
}

// NewFileSink creates a filesystem sink.
func NewFileSink() *FileSink {
	return &FileSink{perm: 0o644}
}

// WriteFile replaces name with content, creating parent directories.
func (s *FileSink) WriteFile(ctx context.Context, name string, content []byte) error {
	if err := ensureDir(name); err != nil {
		return err
	}
	if err := os.WriteFile(name, content, s.perm); err != nil {
		return domain.IOError("failed to write "+name, err)
	}
	return nil
}

// Create opens name for incremental writing, truncating existing content.
func (s *FileSink) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := ensureDir(name); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, s.perm)
	if err != nil {
		return nil, domain.IOError("failed to create "+name, err)
	}
	return f, nil
}

func ensureDir(name string) error {
	dir := filepath.Dir(name)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.IOError("failed to create directory "+dir, err)
	}
	return nil
}
