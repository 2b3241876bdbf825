package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/internal/llm"
	"github.com/spherical/pdfconv/internal/observability"
)

type fakeIndexer struct {
	pages int
	err   error
}

func (f *fakeIndexer) PageCount([]byte) (int, error) { return f.pages, f.err }

func (f *fakeIndexer) PageTexts([]byte) ([]string, error) { return make([]string, f.pages), nil }

func (f *fakeIndexer) ExtractText([]byte) (string, bool) { return "", false }

// fakePlanner splits into one chunk per pagesPerChunk pages without
// touching the payload.
type fakePlanner struct {
	gotPerChunk int
	err         error
}

func (f *fakePlanner) Plan(data []byte, totalPages, pagesPerChunk int, autoChunk bool) ([]domain.Chunk, error) {
	f.gotPerChunk = pagesPerChunk
	if f.err != nil {
		return nil, f.err
	}
	if !autoChunk {
		pagesPerChunk = totalPages
	}
	var chunks []domain.Chunk
	for start := 1; start <= totalPages; start += pagesPerChunk {
		end := min(start+pagesPerChunk-1, totalPages)
		chunks = append(chunks, domain.Chunk{
			Data:       []byte(fmt.Sprintf("%%PDF-chunk-%d", start)),
			StartPage:  start,
			EndPage:    end,
			TotalPages: totalPages,
		})
	}
	return chunks, nil
}

type reply struct {
	content string
	err     error
}

// scriptedInvoker answers calls in order.
type scriptedInvoker struct {
	replies []reply
	calls   []llm.Message
}

func (s *scriptedInvoker) Invoke(ctx context.Context, msg llm.Message) (*llm.Response, error) {
	n := len(s.calls)
	s.calls = append(s.calls, msg)
	if n >= len(s.replies) {
		return nil, errors.New("unexpected call")
	}
	r := s.replies[n]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Response{Content: r.content}, nil
}

func ok(content string) reply { return reply{content: content} }

func fail(msg string) reply { return reply{err: errors.New(msg)} }

type memWriter struct {
	bytes.Buffer
	closed bool
}

func (w *memWriter) Close() error {
	w.closed = true
	return nil
}

type memSink struct {
	mu      sync.Mutex
	files   map[string]string
	writers map[string]*memWriter
	failAll bool
}

func newMemSink() *memSink {
	return &memSink{files: make(map[string]string), writers: make(map[string]*memWriter)}
}

func (m *memSink) WriteFile(ctx context.Context, name string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return domain.IOError("disk full", nil)
	}
	m.files[name] = string(content)
	return nil
}

func (m *memSink) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, domain.IOError("disk full", nil)
	}
	w := &memWriter{}
	m.writers[name] = w
	return w, nil
}

func (m *memSink) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for name := range m.files {
		out = append(out, name)
	}
	return out
}

type fixture struct {
	invoker *scriptedInvoker
	planner *fakePlanner
	sink    *memSink
	svc     *Service
}

func newFixture(pages int, replies ...reply) *fixture {
	f := &fixture{
		invoker: &scriptedInvoker{replies: replies},
		planner: &fakePlanner{},
		sink:    newMemSink(),
	}
	factory := func(ctx context.Context, d llm.Descriptor, opts llm.ClientOptions, logger *observability.Logger) (llm.Invoker, error) {
		return f.invoker, nil
	}
	clients := llm.NewClients(
		llm.WithFactory(factory),
		llm.WithGetenv(func(string) string { return "test-key" }),
	)
	f.svc = NewService(Dependencies{
		Indexer: &fakeIndexer{pages: pages},
		Planner: f.planner,
		Clients: clients,
		Sink:    f.sink,
	})
	return f
}

// request plans one chunk per page.
func request(output string) Request {
	cfg := domain.DefaultConversionConfig()
	cfg.MaxPagesPerChunk = 1
	return Request{
		Document: &domain.Document{Name: "report.pdf", Data: []byte("%PDF-1.4")},
		Output:   output,
		Provider: llm.OpenRouter,
		Config:   cfg,
	}
}
