package extract

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/internal/metrics"
)

// State is the lifecycle position of a Stream.
type State int

const (
	// StatePending means iteration has not started.
	StatePending State = iota
	// StateRunning means chunks are being produced.
	StateRunning
	// StateCompleted means every chunk was converted.
	StateCompleted
	// StateFailed means a chunk failed and iteration stopped after
	// persisting what had succeeded.
	StateFailed
	// StateAbandoned means the consumer stopped iterating early.
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stream is the lazy form of a conversion. Chunk CSV is produced as the
// consumer iterates, and appended to the output as it goes.
type Stream struct {
	svc   *Service
	ctx   context.Context
	run   *run
	state State
	err   error
	acc   []string
}

// ConvertStream prepares a streaming conversion. Setup errors are returned
// here; chunk failures end the sequence silently and show up in State and
// Err afterwards.
func (s *Service) ConvertStream(ctx context.Context, req Request) (*Stream, error) {
	r, err := s.prepare(ctx, req)
	if err != nil {
		s.metrics.ObserveConversion(ModeStream, metrics.OutcomeFailed)
		return nil, err
	}
	return &Stream{svc: s, ctx: ctx, run: r, acc: make([]string, 0, len(r.chunks))}, nil
}

// Chunks returns the sequence of converted chunks. It can be ranged over
// once; later calls yield nothing. The output is closed on every exit
// path, including a consumer that breaks out of the loop.
func (st *Stream) Chunks() iter.Seq[string] {
	return func(yield func(string) bool) {
		if st.state != StatePending {
			return
		}
		st.state = StateRunning

		s, r := st.svc, st.run
		s.emitStart(r)

		out := st.openOutput()
		defer func() {
			if out != nil {
				if err := out.Close(); err != nil {
					r.logger.Error().Err(err).Str("file", r.req.Output).Msg("Failed to close output")
				}
			}
			if st.state == StateRunning {
				st.state = StateAbandoned
			}
			if st.state == StateAbandoned {
				r.logger.Info().Int("chunks_done", len(st.acc)).Msg("Stream abandoned by consumer")
				s.metrics.ObserveConversion(ModeStream, metrics.OutcomePartial)
			}
		}()

		for i := range r.chunks {
			csv, err := s.convertChunk(st.ctx, r, i)
			if err != nil {
				st.fail(i, err)
				return
			}
			st.acc = append(st.acc, csv)
			out = st.appendOutput(out, i, csv)
			s.emitChunkComplete(r, i)

			if !yield(csv) {
				st.state = StateAbandoned
				return
			}
		}

		st.state = StateCompleted
		s.metrics.ObserveConversion(ModeStream, metrics.OutcomeComplete)
		s.emit(r, domain.StreamEvent{
			Type:       domain.EventComplete,
			ChunkIndex: len(r.chunks) - 1,
			Payload:    fmt.Sprintf("Streamed %d chunks", len(r.chunks)),
		})
	}
}

func (st *Stream) fail(index int, cause error) {
	s, r := st.svc, st.run
	st.err = s.chunkFailure(r, index, cause)
	st.state = StateFailed

	if len(st.acc) == 0 {
		s.metrics.ObserveConversion(ModeStream, metrics.OutcomeFailed)
		return
	}
	s.persistPartial(st.ctx, r, strings.Join(st.acc, "\n"), index, false)
	s.metrics.ObserveConversion(ModeStream, metrics.OutcomePartial)
	r.logger.Warn().Int("chunk", index+1).Msg("Stopping stream")
}

func (st *Stream) openOutput() io.WriteCloser {
	s, r := st.svc, st.run
	if r.req.Output == "" || s.sink == nil {
		return nil
	}
	w, err := s.sink.Create(st.ctx, r.req.Output)
	if err != nil {
		r.logger.Error().Err(err).Str("file", r.req.Output).Msg("Failed to open output, continuing without it")
		return nil
	}
	return w
}

// appendOutput writes one chunk, newline separated from the previous one.
// After a write error the output is closed and writing stops.
func (st *Stream) appendOutput(out io.WriteCloser, i int, csv string) io.WriteCloser {
	if out == nil {
		return nil
	}
	text := csv
	if i > 0 {
		text = "\n" + csv
	}
	if _, err := io.WriteString(out, text); err != nil {
		r := st.run
		r.logger.Error().Err(err).Str("file", r.req.Output).Msg("Failed to write output, continuing without it")
		_ = out.Close()
		return nil
	}
	return out
}

// State returns where the stream is in its lifecycle.
func (st *Stream) State() State {
	return st.state
}

// Err returns the chunk failure that ended the stream, if any. It is a
// *domain.ConversionFailedError.
func (st *Stream) Err() error {
	return st.err
}

// CompletedFully reports whether every chunk was converted.
func (st *Stream) CompletedFully() bool {
	return st.state == StateCompleted
}

// CSV returns the chunks produced so far joined by newlines.
func (st *Stream) CSV() string {
	return strings.Join(st.acc, "\n")
}

// RunID identifies the conversion in logs and events.
func (st *Stream) RunID() string {
	return st.run.id
}

// ChunksTotal returns the number of planned chunks.
func (st *Stream) ChunksTotal() int {
	return len(st.run.chunks)
}
