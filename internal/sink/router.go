package sink

import (
	"context"
	"io"
	"strings"

	"github.com/spherical/pdfconv/internal/domain"
)

// Router sends s3:// names to the remote sink and everything else to the
// local one.
type Router struct {
	Local  domain.Sink
	Remote domain.Sink
}

// NewRouter creates a router. remote may be nil when S3 is not configured.
func NewRouter(local, remote domain.Sink) *Router {
	return &Router{Local: local, Remote: remote}
}

// WriteFile implements domain.Sink.
func (r *Router) WriteFile(ctx context.Context, name string, content []byte) error {
	s, err := r.route(name)
	if err != nil {
		return err
	}
	return s.WriteFile(ctx, name, content)
}

// Create implements domain.Sink.
func (r *Router) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	s, err := r.route(name)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, name)
}

func (r *Router) route(name string) (domain.Sink, error) {
	if strings.HasPrefix(name, S3Scheme) {
		if r.Remote == nil {
			return nil, domain.ConfigError("s3 output requested but no S3 sink is configured", nil)
		}
		return r.Remote, nil
	}
	return r.Local, nil
}
