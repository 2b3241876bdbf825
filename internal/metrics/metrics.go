// Package metrics records conversion counters and latencies with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chunk statuses.
const (
	ChunkOK     = "ok"
	ChunkFailed = "failed"
	ChunkCached = "cached"
)

// Conversion outcomes.
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"
)

// Recorder holds the conversion metrics.
type Recorder struct {
	gatherer      prometheus.Gatherer
	chunks        *prometheus.CounterVec
	conversions   *prometheus.CounterVec
	chunkDuration *prometheus.HistogramVec
}

// NewRecorder registers metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	return NewRecorderWith(reg, reg)
}

// NewRecorderWith registers metrics on reg and reads them back through g.
func NewRecorderWith(reg prometheus.Registerer, g prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		gatherer: g,
		chunks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdfconv_chunks_total",
			Help: "Chunks processed, by provider and status.",
		}, []string{"provider", "status"}),
		conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdfconv_conversions_total",
			Help: "Conversions finished, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		chunkDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdfconv_chunk_duration_seconds",
			Help:    "Time spent converting one chunk, including retries.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"provider"}),
	}
}

// ObserveChunk records a chunk status and, for provider calls, its latency.
func (r *Recorder) ObserveChunk(provider, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.chunks.WithLabelValues(provider, status).Inc()
	if status != ChunkCached {
		r.chunkDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// ObserveConversion records how a conversion ended.
func (r *Recorder) ObserveConversion(mode, outcome string) {
	if r == nil {
		return
	}
	r.conversions.WithLabelValues(mode, outcome).Inc()
}

// WriteTextfile writes all metrics in the text exposition format, suitable
// for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.gatherer)
}
