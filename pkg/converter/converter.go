// Package converter is the public entry point for converting PDF documents
// to CSV, either through an LLM provider or by plain text extraction.
package converter

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/spherical/pdfconv/internal/basic"
	"github.com/spherical/pdfconv/internal/cache"
	"github.com/spherical/pdfconv/internal/config"
	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/internal/extract"
	"github.com/spherical/pdfconv/internal/llm"
	"github.com/spherical/pdfconv/internal/metrics"
	"github.com/spherical/pdfconv/internal/observability"
	"github.com/spherical/pdfconv/internal/pdf"
	"github.com/spherical/pdfconv/internal/sink"
)

// Re-export types for the public API
type (
	StreamEvent      = domain.StreamEvent
	EventType        = domain.EventType
	Outcome          = domain.ConversionOutcome
	ConversionConfig = domain.ConversionConfig
	Config           = config.Config
	BasicOptions     = basic.Options
	Stream           = extract.Stream
	State            = extract.State
)

// Event type constants
const (
	EventStart           = domain.EventStart
	EventChunkProcessing = domain.EventChunkProcessing
	EventChunkComplete   = domain.EventChunkComplete
	EventChunkFailed     = domain.EventChunkFailed
	EventPartialSaved    = domain.EventPartialSaved
	EventComplete        = domain.EventComplete
)

// Stream states
const (
	StateCompleted = extract.StateCompleted
	StateFailed    = extract.StateFailed
	StateAbandoned = extract.StateAbandoned
)

// Output formats for the basic path.
const (
	FormatCSV  = "csv"
	FormatText = "text"
)

// Options configures a Client.
type Options struct {
	// Config is used as is when set; otherwise it is loaded from ConfigPath
	// and the environment.
	Config     *config.Config
	ConfigPath string
	// DotEnvFiles are loaded before configuration. Defaults to ".env".
	DotEnvFiles []string
	SkipDotEnv  bool
	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer
	// Verbose forces debug logging.
	Verbose bool

	factory llm.Factory
	getenv  func(string) string
}

// Client is the main entry point for the converter library. A Client
// converts one document at a time.
type Client struct {
	cfg     *config.Config
	service *extract.Service
	indexer *pdf.Indexer
	sink    domain.Sink
	cache   cache.Client
	metrics *metrics.Recorder
	logger  *observability.Logger
}

// New creates a client wired with the configured stack.
func New(ctx context.Context, opts Options) (*Client, error) {
	if !opts.SkipDotEnv {
		if err := config.LoadDotEnv(opts.DotEnvFiles...); err != nil {
			return nil, err
		}
	}

	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("validate config", err)
	}

	level := cfg.Observability.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      cfg.Observability.LogFormat,
		Output:      opts.LogOutput,
		ServiceName: "pdfconv",
	})

	backend, err := pdf.NewTextBackend(cfg.Extraction.TextBackend)
	if err != nil {
		return nil, err
	}
	indexer := pdf.NewIndexer(backend)

	chunkCache := newCache(ctx, cfg.Cache, logger)

	var remote domain.Sink
	if s3Sink, err := sink.NewDefaultS3Sink(ctx, cfg.Output.S3Region, logger.WithOperation("s3")); err != nil {
		logger.Debug().Err(err).Msg("S3 output unavailable")
	} else {
		remote = s3Sink
	}
	out := sink.NewRouter(sink.NewFileSink(), remote)

	recorder := metrics.NewRecorder()

	clientOpts := []llm.ClientsOption{
		llm.WithModelOverrides(cfg.ModelOverrides()),
		llm.WithTimeout(cfg.Provider.Timeout),
		llm.WithLogger(logger.WithOperation("llm")),
	}
	if opts.factory != nil {
		clientOpts = append(clientOpts, llm.WithFactory(opts.factory))
	}
	if opts.getenv != nil {
		clientOpts = append(clientOpts, llm.WithGetenv(opts.getenv))
	}
	clients := llm.NewClients(clientOpts...)

	service := extract.NewService(extract.Dependencies{
		Indexer:  indexer,
		Planner:  pdf.NewPlanner(),
		Clients:  clients,
		Messages: llm.NewMessageBuilder(indexer),
		Sink:     out,
		Cache:    chunkCache,
		CacheTTL: cfg.Cache.TTL,
		Metrics:  recorder,
		Logger:   logger.WithOperation("convert"),
	})

	return &Client{
		cfg:     cfg,
		service: service,
		indexer: indexer,
		sink:    out,
		cache:   chunkCache,
		metrics: recorder,
		logger:  logger,
	}, nil
}

// newCache builds the configured chunk cache. An unreachable Redis falls
// back to an in-memory cache.
func newCache(ctx context.Context, cfg config.CacheConfig, logger *observability.Logger) cache.Client {
	switch cfg.Driver {
	case cache.DriverMemory:
		return cache.NewMemoryClient(cfg.MaxEntries)
	case cache.DriverRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, using in-memory chunk cache")
			return cache.NewMemoryClient(cfg.MaxEntries)
		}
		return client
	default:
		return nil
	}
}

// Request describes an LLM-backed conversion.
type Request struct {
	// Input is a file path, or "-" for Stdin.
	Input string
	Stdin io.Reader
	// Output is where the CSV is written; empty leaves writing to the caller.
	// Names starting with s3:// are uploaded to S3.
	Output string
	// Provider defaults to the configured provider.
	Provider string
	// Conversion defaults to the configured conversion settings.
	Conversion *ConversionConfig
	Events     chan<- StreamEvent
}

// Convert converts the whole document. See extract.Service.Convert for the
// partial-result contract.
func (c *Client) Convert(ctx context.Context, req Request) (*Outcome, error) {
	r, err := c.request(req)
	if err != nil {
		return nil, err
	}
	return c.service.Convert(ctx, r)
}

// ConvertStream prepares a lazy conversion whose chunks are produced as the
// caller ranges over Stream.Chunks.
func (c *Client) ConvertStream(ctx context.Context, req Request) (*Stream, error) {
	r, err := c.request(req)
	if err != nil {
		return nil, err
	}
	return c.service.ConvertStream(ctx, r)
}

func (c *Client) request(req Request) (extract.Request, error) {
	doc, err := c.load(req.Input, req.Stdin)
	if err != nil {
		return extract.Request{}, err
	}

	providerID := req.Provider
	if providerID == "" {
		providerID = c.cfg.Provider.Default
	}
	provider, err := llm.ParseProvider(providerID)
	if err != nil {
		return extract.Request{}, err
	}

	conv := c.cfg.Conversion
	if req.Conversion != nil {
		conv = *req.Conversion
	}

	return extract.Request{
		Document: doc,
		Output:   req.Output,
		Provider: provider,
		Config:   conv,
		Events:   req.Events,
	}, nil
}

// BasicRequest describes a conversion without a model.
type BasicRequest struct {
	Input string
	Stdin io.Reader
	// Output is where the result is written; when empty it goes to Writer.
	Output string
	Writer io.Writer
	// Format is FormatCSV or FormatText.
	Format string
	// Options defaults to the configured basic options.
	Options *BasicOptions
}

// ConvertBasic extracts page text and renders it as CSV or plain text.
func (c *Client) ConvertBasic(ctx context.Context, req BasicRequest) error {
	doc, err := c.load(req.Input, req.Stdin)
	if err != nil {
		return err
	}

	pages, err := c.indexer.PageTexts(doc.Data)
	if err != nil {
		return err
	}

	opts := c.cfg.Basic
	if req.Options != nil {
		opts = *req.Options
	}

	var buf bytes.Buffer
	switch req.Format {
	case FormatText:
		buf.WriteString(basic.Text(pages))
		buf.WriteByte('\n')
	case FormatCSV, "":
		if err := basic.WriteCSV(&buf, pages, opts); err != nil {
			return domain.IOError("failed to render CSV", err)
		}
	default:
		return domain.ValidationError("unknown output format: "+req.Format, nil)
	}

	c.logger.Info().
		Str("document", doc.Name).
		Int("pages", len(pages)).
		Str("format", req.Format).
		Msg("Extracted text")

	if req.Output != "" {
		return c.sink.WriteFile(ctx, req.Output, buf.Bytes())
	}
	w := req.Writer
	if w == nil {
		w = os.Stdout
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return domain.IOError("failed to write output", err)
	}
	return nil
}

func (c *Client) load(input string, stdin io.Reader) (*domain.Document, error) {
	doc, err := pdf.LoadDocument(input, stdin)
	if err != nil {
		return nil, err
	}
	if pdf.IsLarge(doc.Data) {
		c.logger.Warn().Str("document", input).Int("bytes", len(doc.Data)).Msg("Large document, conversion may be slow")
	}
	return doc, nil
}

// Providers lists the known provider ids.
func Providers() []string {
	ps := llm.Providers()
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

// Config returns the effective configuration.
func (c *Client) Config() *Config {
	return c.cfg
}

// Logger returns the client's logger.
func (c *Client) Logger() *observability.Logger {
	return c.logger
}

// WriteMetrics exports metrics to the configured textfile, if any.
func (c *Client) WriteMetrics() error {
	path := c.cfg.Observability.MetricsFile
	if path == "" {
		return nil
	}
	if err := c.metrics.WriteTextfile(path); err != nil {
		return domain.IOError("failed to write metrics to "+path, err)
	}
	return nil
}

// Close releases the cache connection.
func (c *Client) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}
