// Package extract drives chunked PDF to CSV conversion through an LLM
// provider, in batch and streaming form.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/pdfconv/internal/cache"
	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/internal/llm"
	"github.com/spherical/pdfconv/internal/metrics"
	"github.com/spherical/pdfconv/internal/observability"
	"github.com/spherical/pdfconv/internal/pdf"
)

// Conversion modes, as reported to metrics.
const (
	ModeBatch  = "batch"
	ModeStream = "stream"
)

// DefaultCacheTTL is how long converted chunks stay cached.
const DefaultCacheTTL = 24 * time.Hour

// Dependencies wires a Service. Cache, Metrics and Logger are optional.
type Dependencies struct {
	Indexer  domain.Indexer
	Planner  domain.Planner
	Clients  *llm.Clients
	Messages *llm.MessageBuilder
	Sink     domain.Sink
	Cache    cache.Client
	CacheTTL time.Duration
	Metrics  *metrics.Recorder
	Logger   *observability.Logger
}

// Service orchestrates the conversion of one document at a time. Chunks are
// processed strictly in order, one after another.
type Service struct {
	indexer  domain.Indexer
	planner  domain.Planner
	clients  *llm.Clients
	messages *llm.MessageBuilder
	sink     domain.Sink
	cache    cache.Client
	cacheTTL time.Duration
	metrics  *metrics.Recorder
	logger   *observability.Logger
}

// NewService creates a conversion service.
func NewService(deps Dependencies) *Service {
	s := &Service{
		indexer:  deps.Indexer,
		planner:  deps.Planner,
		clients:  deps.Clients,
		messages: deps.Messages,
		sink:     deps.Sink,
		cache:    deps.Cache,
		cacheTTL: deps.CacheTTL,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
	if s.indexer == nil {
		s.indexer = pdf.NewIndexer(nil)
	}
	if s.planner == nil {
		s.planner = pdf.NewPlanner()
	}
	if s.logger == nil {
		s.logger = observability.Nop()
	}
	if s.clients == nil {
		s.clients = llm.NewClients(llm.WithLogger(s.logger))
	}
	if s.messages == nil {
		s.messages = llm.NewMessageBuilder(s.indexer)
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = DefaultCacheTTL
	}
	return s
}

// Request describes one conversion.
type Request struct {
	Document *domain.Document
	// Output is the final CSV destination; empty means the caller only
	// wants the returned text.
	Output   string
	Provider llm.Provider
	Config   domain.ConversionConfig
	// Events receives progress notifications. Sends never block; events
	// are dropped when the channel is full.
	Events chan<- domain.StreamEvent
}

// run is the prepared state of one conversion.
type run struct {
	id      string
	req     Request
	invoker llm.Invoker
	desc    llm.Descriptor
	chunks  []domain.Chunk
	logger  *observability.Logger
}

// Convert converts the whole document and returns the joined CSV. When a
// chunk fails after earlier chunks succeeded the partial CSV is returned
// with CompletedFully cleared; when the first chunk fails the call fails
// with a *domain.ConversionFailedError.
func (s *Service) Convert(ctx context.Context, req Request) (*domain.ConversionOutcome, error) {
	r, err := s.prepare(ctx, req)
	if err != nil {
		s.metrics.ObserveConversion(ModeBatch, metrics.OutcomeFailed)
		return nil, err
	}

	startTime := time.Now()
	s.emitStart(r)

	acc := make([]string, 0, len(r.chunks))
	for i := range r.chunks {
		csv, err := s.convertChunk(ctx, r, i)
		if err != nil {
			return s.handleBatchFailure(ctx, r, acc, i, err)
		}
		acc = append(acc, csv)
		s.emitChunkComplete(r, i)
	}

	result := strings.Join(acc, "\n")
	if req.Output != "" {
		s.writeBestEffort(ctx, r, req.Output, result)
	}

	s.metrics.ObserveConversion(ModeBatch, metrics.OutcomeComplete)
	s.emit(r, domain.StreamEvent{
		Type:       domain.EventComplete,
		ChunkIndex: len(r.chunks) - 1,
		Payload:    fmt.Sprintf("Converted %d chunks in %v", len(r.chunks), time.Since(startTime).Round(time.Millisecond)),
	})
	r.logger.Info().
		Int("chunks", len(r.chunks)).
		Dur("duration", time.Since(startTime)).
		Msg("Conversion complete")

	return &domain.ConversionOutcome{
		CSV:            result,
		CompletedFully: true,
		ChunksTotal:    len(r.chunks),
		ChunksDone:     len(acc),
		RunID:          r.id,
	}, nil
}

func (s *Service) handleBatchFailure(ctx context.Context, r *run, acc []string, index int, cause error) (*domain.ConversionOutcome, error) {
	failure := s.chunkFailure(r, index, cause)

	if len(acc) == 0 {
		s.metrics.ObserveConversion(ModeBatch, metrics.OutcomeFailed)
		return nil, failure
	}

	partial := strings.Join(acc, "\n")
	s.persistPartial(ctx, r, partial, index, true)
	if r.req.Output != "" {
		s.writeBestEffort(ctx, r, r.req.Output, partial)
	}

	s.metrics.ObserveConversion(ModeBatch, metrics.OutcomePartial)
	r.logger.Warn().
		Int("chunks_done", len(acc)).
		Int("chunks_total", len(r.chunks)).
		Msg("Conversion stopped early, returning partial result")

	return &domain.ConversionOutcome{
		CSV:            partial,
		CompletedFully: false,
		ChunksTotal:    len(r.chunks),
		ChunksDone:     len(acc),
		FailedChunk:    &domain.ChunkResult{Index: index, Err: failure},
		RunID:          r.id,
	}, nil
}

// prepare resolves the provider and plans chunks. Errors here end the call
// before any chunk is attempted.
func (s *Service) prepare(ctx context.Context, req Request) (*run, error) {
	if req.Document == nil || len(req.Document.Data) == 0 {
		return nil, domain.ValidationError("no document to convert", nil)
	}
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}

	invoker, desc, err := s.clients.Get(ctx, req.Provider, req.Config.MaxRetries)
	if err != nil {
		return nil, err
	}

	total := req.Document.TotalPages
	if total == 0 {
		total, err = s.indexer.PageCount(req.Document.Data)
		if err != nil {
			return nil, err
		}
	}

	perChunk := desc.EffectivePagesPerChunk(req.Config.MaxPagesPerChunk)
	chunks, err := s.planner.Plan(req.Document.Data, total, perChunk, req.Config.AutoChunk)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	logger := s.logger.WithRun(id).WithProvider(string(desc.ID))
	logger.Info().
		Str("document", req.Document.Name).
		Int("pages", total).
		Int("pages_per_chunk", perChunk).
		Int("chunks", len(chunks)).
		Str("model", desc.Model).
		Msg("Planned conversion")

	return &run{
		id:      id,
		req:     req,
		invoker: invoker,
		desc:    desc,
		chunks:  chunks,
		logger:  logger,
	}, nil
}

// convertChunk produces the final CSV of chunk i: prompt, provider call,
// cleaning and continuation header removal.
func (s *Service) convertChunk(ctx context.Context, r *run, i int) (string, error) {
	chunk := r.chunks[i]
	cfg := r.req.Config
	isFirst := i == 0

	s.emit(r, domain.StreamEvent{
		Type:       domain.EventChunkProcessing,
		ChunkIndex: i,
		Payload:    fmt.Sprintf("Converting chunk %d/%d (%s)", i+1, len(r.chunks), chunk.PageRange()),
	})
	r.logger.Info().
		Int("chunk", i+1).
		Int("of", len(r.chunks)).
		Str("pages", chunk.PageRange()).
		Msg("Converting chunk")

	if err := ctx.Err(); err != nil {
		return "", err
	}

	label := ""
	if len(r.chunks) > 1 {
		label = chunk.PageRange()
	}
	prompt := llm.BuildPrompt(label, isFirst, cfg.RemoveHeaderOnContinuation)
	msg := s.messages.Build(prompt, chunk.Data, r.desc, cfg.UseStructuredMessages, cfg.ExtractText)

	key := messageKey(r.desc, msg)
	csv, hit := s.lookup(ctx, r, key)
	if hit {
		s.metrics.ObserveChunk(string(r.desc.ID), metrics.ChunkCached, 0)
	} else {
		start := time.Now()
		resp, err := r.invoker.Invoke(ctx, msg)
		if err == nil {
			csv, err = CleanResponse(resp.Content)
		}
		if err != nil {
			s.metrics.ObserveChunk(string(r.desc.ID), metrics.ChunkFailed, time.Since(start))
			return "", err
		}
		s.metrics.ObserveChunk(string(r.desc.ID), metrics.ChunkOK, time.Since(start))
		s.store(ctx, r, key, csv)
	}

	if cfg.RemoveHeaderOnContinuation && !isFirst {
		csv = RemoveHeaderRow(csv)
	}
	return csv, nil
}

func (s *Service) chunkFailure(r *run, index int, cause error) *domain.ConversionFailedError {
	chunk := r.chunks[index]
	failure := &domain.ConversionFailedError{
		ChunkIndex: index,
		StartPage:  chunk.StartPage,
		EndPage:    chunk.EndPage,
		TotalPages: chunk.TotalPages,
		Err:        cause,
	}
	r.logger.Error().
		Err(cause).
		Int("chunk", index+1).
		Str("pages", chunk.PageRange()).
		Msg("Chunk conversion failed")
	s.emit(r, domain.StreamEvent{
		Type:       domain.EventChunkFailed,
		ChunkIndex: index,
		Payload:    failure.Error(),
	})
	return failure
}

// persistPartial writes the salvaged CSV next to the output. Write failures
// are logged and never fail the conversion.
func (s *Service) persistPartial(ctx context.Context, r *run, content string, index int, incomplete bool) {
	if s.sink == nil {
		return
	}
	base := partialBase(r.req)
	names := []string{fmt.Sprintf("%s.partial_%d", base, index)}
	if incomplete && r.req.Output != "" {
		names = append(names, r.req.Output+".incomplete")
	}
	for _, name := range names {
		if s.writeBestEffort(ctx, r, name, content) {
			s.emit(r, domain.StreamEvent{
				Type:       domain.EventPartialSaved,
				ChunkIndex: index,
				Payload:    name,
			})
		}
	}
}

// writeBestEffort replaces name with content and reports success. Writes
// outlive cancellation of ctx so partial output survives an interrupt.
func (s *Service) writeBestEffort(ctx context.Context, r *run, name, content string) bool {
	if s.sink == nil {
		return false
	}
	if err := s.sink.WriteFile(context.WithoutCancel(ctx), name, []byte(content)); err != nil {
		r.logger.Error().Err(err).Str("file", name).Msg("Failed to save output")
		return false
	}
	r.logger.Info().Str("file", name).Msg("Saved output")
	return true
}

func (s *Service) lookup(ctx context.Context, r *run, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	val, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn().Err(err).Msg("Chunk cache lookup failed")
		}
		return "", false
	}
	return string(val), true
}

func (s *Service) store(ctx context.Context, r *run, key, csv string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, []byte(csv), s.cacheTTL); err != nil {
		r.logger.Warn().Err(err).Msg("Chunk cache store failed")
	}
}

// messageKey fingerprints everything sent to the provider.
func messageKey(d llm.Descriptor, msg llm.Message) string {
	if !msg.Structured() {
		return cache.ChunkKey(string(d.ID), d.Model, msg.Text, "flat", nil)
	}
	var payload []byte
	for _, p := range msg.Parts {
		payload = append(payload, string(p.Kind)...)
		payload = append(payload, 0)
		payload = append(payload, p.Text...)
		payload = append(payload, p.URL...)
		payload = append(payload, p.MIMEType...)
		payload = append(payload, p.Data...)
		payload = append(payload, 0)
	}
	return cache.ChunkKey(string(d.ID), d.Model, "", "structured", payload)
}

// partialBase names the file that partial results are saved beside: the
// output when set, otherwise a CSV named after the input.
func partialBase(req Request) string {
	if req.Output != "" {
		return req.Output
	}
	name := req.Document.Name
	if name == "" || name == pdf.StdinName {
		return "stdin.csv"
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".csv"
}

func (s *Service) emitStart(r *run) {
	s.emit(r, domain.StreamEvent{
		Type:    domain.EventStart,
		Payload: fmt.Sprintf("Starting conversion of %s with %s", r.req.Document.Name, r.desc.ID),
	})
}

func (s *Service) emitChunkComplete(r *run, i int) {
	s.emit(r, domain.StreamEvent{
		Type:       domain.EventChunkComplete,
		ChunkIndex: i,
		Payload:    fmt.Sprintf("Completed chunk %d/%d", i+1, len(r.chunks)),
	})
}

// emit safely sends an event to the request's channel.
func (s *Service) emit(r *run, event domain.StreamEvent) {
	if r.req.Events == nil {
		return
	}
	event.RunID = r.id
	event.ChunkTotal = len(r.chunks)
	event.Timestamp = time.Now()
	select {
	case r.req.Events <- event:
	default:
		r.logger.Debug().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
	}
}
