package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdfconv/internal/domain"
)

type fakePutter struct {
	objects map[string]string
	err     error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(body)
	return &s3.PutObjectOutput{}, nil
}

func TestFileSink_WriteFileCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "nested", "out.csv")

	require.NoError(t, NewFileSink().WriteFile(context.Background(), name, []byte("a,b\n1,2")))

	got, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2", string(got))
}

func TestFileSink_CreateTruncates(t *testing.T) {
	name := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(name, []byte("old content that is long"), 0o644))

	w, err := NewFileSink().Create(context.Background(), name)
	require.NoError(t, err)
	_, err = io.WriteString(w, "new")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestParseS3Name(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		bucket  string
		key     string
		wantErr bool
	}{
		{name: "simple", input: "s3://bucket/out.csv", bucket: "bucket", key: "out.csv"},
		{name: "nested key", input: "s3://bucket/a/b/out.csv", bucket: "bucket", key: "a/b/out.csv"},
		{name: "no key", input: "s3://bucket", wantErr: true},
		{name: "no bucket", input: "s3:///out.csv", wantErr: true},
		{name: "local path", input: "out.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseS3Name(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestS3Sink_WriteFile(t *testing.T) {
	putter := &fakePutter{}
	s := NewS3Sink(putter, nil)

	require.NoError(t, s.WriteFile(context.Background(), "s3://bucket/run/out.csv", []byte("a,b")))
	assert.Equal(t, "a,b", putter.objects["bucket/run/out.csv"])
}

func TestS3Sink_WriteFileError(t *testing.T) {
	s := NewS3Sink(&fakePutter{err: errors.New("denied")}, nil)

	err := s.WriteFile(context.Background(), "s3://bucket/out.csv", []byte("a,b"))
	assert.ErrorIs(t, err, domain.ErrIO)
}

func TestS3Sink_CreateUploadsOnClose(t *testing.T) {
	putter := &fakePutter{}
	s := NewS3Sink(putter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w, err := s.Create(ctx, "s3://bucket/out.csv")
	require.NoError(t, err)

	_, err = io.WriteString(w, "a,b\n")
	require.NoError(t, err)
	_, err = io.WriteString(w, "1,2")
	require.NoError(t, err)
	assert.Empty(t, putter.objects)

	cancel()
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, "a,b\n1,2", putter.objects["bucket/out.csv"])

	_, err = w.Write([]byte("late"))
	assert.Error(t, err)
}

type memorySink struct {
	files map[string][]byte
}

func (m *memorySink) WriteFile(ctx context.Context, name string, content []byte) error {
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = content
	return nil
}

func (m *memorySink) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	return nopCloser{&bytes.Buffer{}}, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func TestRouter(t *testing.T) {
	local := &memorySink{}
	remote := &memorySink{}
	r := NewRouter(local, remote)
	ctx := context.Background()

	require.NoError(t, r.WriteFile(ctx, "out.csv", []byte("l")))
	require.NoError(t, r.WriteFile(ctx, "s3://b/out.csv", []byte("r")))

	assert.Equal(t, []byte("l"), local.files["out.csv"])
	assert.Equal(t, []byte("r"), remote.files["s3://b/out.csv"])
}

func TestRouter_NoRemote(t *testing.T) {
	r := NewRouter(&memorySink{}, nil)

	err := r.WriteFile(context.Background(), "s3://b/out.csv", []byte("r"))
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = r.Create(context.Background(), "s3://b/out.csv")
	assert.ErrorIs(t, err, domain.ErrConfig)
}
