package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/internal/observability"
)

// S3Scheme prefixes output names that belong in S3.
const S3Scheme = "s3://"

// ObjectPutter is the subset of the S3 client used by S3Sink.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads output to S3. Names take the form s3://bucket/key.
type S3Sink struct {
	client ObjectPutter
	logger *observability.Logger
}

// NewS3Sink creates a sink over an existing client.
func NewS3Sink(client ObjectPutter, logger *observability.Logger) *S3Sink {
	if logger == nil {
		logger = observability.Nop()
	}
	return &S3Sink{client: client, logger: logger}
}

// NewDefaultS3Sink loads credentials and region from the default AWS chain.
func NewDefaultS3Sink(ctx context.Context, region string, logger *observability.Logger) (*S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, domain.ConfigError("failed to load AWS configuration", err)
	}
	return NewS3Sink(s3.NewFromConfig(cfg), logger), nil
}

// ParseS3Name splits s3://bucket/key into its parts.
func ParseS3Name(name string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(name, S3Scheme)
	if !ok {
		return "", "", domain.ValidationError(fmt.Sprintf("not an s3 name: %s", name), nil)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", domain.ValidationError(fmt.Sprintf("s3 name needs bucket and key: %s", name), nil)
	}
	return bucket, key, nil
}

// WriteFile uploads content as a single object.
func (s *S3Sink) WriteFile(ctx context.Context, name string, content []byte) error {
	bucket, key, err := ParseS3Name(name)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		s.logger.Error().
			Str("bucket", bucket).
			Str("key", key).
			Err(err).
			Msg("Failed to store object in S3")
		return domain.IOError("failed to store "+name, err)
	}

	s.logger.Debug().Str("bucket", bucket).Str("key", key).Int("bytes", len(content)).Msg("Stored object in S3")
	return nil
}

// Create buffers writes and uploads the object on Close.
func (s *S3Sink) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if _, _, err := ParseS3Name(name); err != nil {
		return nil, err
	}
	return &s3Writer{ctx: ctx, sink: s, name: name}, nil
}

type s3Writer struct {
	ctx    context.Context
	sink   *S3Sink
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, domain.IOError("write to closed object "+w.name, nil)
	}
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	// The conversion context may be cancelled when the consumer stops early;
	// the upload of what was streamed so far should still happen.
	return w.sink.WriteFile(context.WithoutCancel(w.ctx), w.name, w.buf.Bytes())
}
