package cloudmetrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Row outcome labels.
const (
	RowsImported  = "imported"
	RowsDuplicate = "duplicate"
	RowsSkipped   = "skipped"
	RowsInvalid   = "invalid"
)

// Batch outcome labels.
const (
	BatchOK     = "ok"
	BatchFailed = "failed"
)

type Recorder interface {
	RecordUploadAccepted()
	RecordJobFinished(status string)
	ObserveJobPhase(phase string, seconds float64)
	RecordRows(outcome string, count int)
	RecordEnrichmentBatch(outcome string)
	RecordEmbeddingBatch(outcome string)
}

type recorder struct {
	metrics *metrics
}

type noopRecorder struct{}

func (noopRecorder) RecordUploadAccepted()           {}
func (noopRecorder) RecordJobFinished(string)        {}
func (noopRecorder) ObserveJobPhase(string, float64) {}
func (noopRecorder) RecordRows(string, int)          {}
func (noopRecorder) RecordEnrichmentBatch(string)    {}
func (noopRecorder) RecordEmbeddingBatch(string)     {}

var (
	activeRecorder Recorder = noopRecorder{}
	recorderMu     sync.RWMutex
)

func setRecorder(rec Recorder) {
	if rec == nil {
		return
	}
	recorderMu.Lock()
	activeRecorder = rec
	recorderMu.Unlock()
}

func current() Recorder {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	return rec
}

func RecordUploadAccepted() {
	current().RecordUploadAccepted()
}

func RecordJobFinished(status string) {
	current().RecordJobFinished(status)
}

func ObserveJobPhase(phase string, seconds float64) {
	current().ObserveJobPhase(phase, seconds)
}

func RecordRows(outcome string, count int) {
	current().RecordRows(outcome, count)
}

func RecordEnrichmentBatch(outcome string) {
	current().RecordEnrichmentBatch(outcome)
}

func RecordEmbeddingBatch(outcome string) {
	current().RecordEmbeddingBatch(outcome)
}

func (r *recorder) RecordUploadAccepted() {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.uploadsAccepted.Inc()
}

func (r *recorder) RecordJobFinished(status string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.jobsFinished.WithLabelValues(normalizeLabel(status)).Inc()
}

func (r *recorder) ObserveJobPhase(phase string, seconds float64) {
	if r == nil || r.metrics == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	r.metrics.jobPhaseSeconds.WithLabelValues(normalizeLabel(phase)).Observe(seconds)
}

func (r *recorder) RecordRows(outcome string, count int) {
	if r == nil || r.metrics == nil {
		return
	}
	if count <= 0 {
		return
	}
	r.metrics.rows.WithLabelValues(normalizeLabel(outcome)).Add(float64(count))
}

func (r *recorder) RecordEnrichmentBatch(outcome string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.enrichmentBatches.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (r *recorder) RecordEmbeddingBatch(outcome string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.embeddingBatches.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

type metrics struct {
	uploadsAccepted   prometheus.Counter
	jobsFinished      *prometheus.CounterVec
	jobPhaseSeconds   *prometheus.HistogramVec
	rows              *prometheus.CounterVec
	enrichmentBatches *prometheus.CounterVec
	embeddingBatches  *prometheus.CounterVec
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		uploadsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saldo_uploads_accepted_total",
			Help: "Statement uploads accepted for ingestion.",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saldo_ingest_jobs_total",
			Help: "Ingestion jobs reaching a terminal status.",
		}, []string{"status"}),
		jobPhaseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saldo_ingest_job_phase_seconds",
			Help:    "Wall time spent in each ingestion phase.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saldo_ingest_rows_total",
			Help: "Statement rows by ingestion outcome.",
		}, []string{"outcome"}),
		enrichmentBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saldo_enrichment_batches_total",
			Help: "LLM enrichment batches by outcome.",
		}, []string{"outcome"}),
		embeddingBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saldo_embedding_batches_total",
			Help: "Embedding batches by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.uploadsAccepted,
		m.jobsFinished,
		m.jobPhaseSeconds,
		m.rows,
		m.enrichmentBatches,
		m.embeddingBatches,
	)

	return m
}
