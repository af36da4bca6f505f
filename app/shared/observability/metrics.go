package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IngestMetrics is what the ingestion pipeline reports.
type IngestMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, d time.Duration)
	RecordRatingFallback(ctx context.Context, primary string)
	RecordSkipped(ctx context.Context)
	RecordBackfillFile(ctx context.Context, status string)
}

// PrometheusIngestMetrics implements IngestMetrics on a prometheus registerer.
type PrometheusIngestMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fallbacks  *prometheus.CounterVec
	skipped    prometheus.Counter
	backfill   *prometheus.CounterVec
}

// NewPrometheusIngestMetrics registers the ingest collectors on reg.
func NewPrometheusIngestMetrics(reg prometheus.Registerer) *PrometheusIngestMetrics {
	f := promauto.With(reg)
	return &PrometheusIngestMetrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snakebench",
			Subsystem: "ingest",
			Name:      "operations_total",
			Help:      "Ingest operations by outcome.",
		}, []string{"operation", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "snakebench",
			Subsystem: "ingest",
			Name:      "operation_duration_seconds",
			Help:      "Ingest operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snakebench",
			Subsystem: "rating",
			Name:      "fallback_total",
			Help:      "Games rated by the Elo fallback because the primary failed.",
		}, []string{"primary"}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "snakebench",
			Subsystem: "ingest",
			Name:      "skipped_total",
			Help:      "Replays ingested again without recompute.",
		}),
		backfill: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snakebench",
			Subsystem: "backfill",
			Name:      "files_total",
			Help:      "Backfill files by outcome.",
		}, []string{"status"}),
	}
}

func (m *PrometheusIngestMetrics) RecordOperationAttempt(_ context.Context, op string) {
	m.operations.WithLabelValues(op, "attempt").Inc()
}

func (m *PrometheusIngestMetrics) RecordOperationSuccess(_ context.Context, op string) {
	m.operations.WithLabelValues(op, "success").Inc()
}

func (m *PrometheusIngestMetrics) RecordOperationFailure(_ context.Context, op string) {
	m.operations.WithLabelValues(op, "failure").Inc()
}

func (m *PrometheusIngestMetrics) RecordOperationDuration(_ context.Context, op string, d time.Duration) {
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *PrometheusIngestMetrics) RecordRatingFallback(_ context.Context, primary string) {
	m.fallbacks.WithLabelValues(primary).Inc()
}

func (m *PrometheusIngestMetrics) RecordSkipped(context.Context) { m.skipped.Inc() }

func (m *PrometheusIngestMetrics) RecordBackfillFile(_ context.Context, status string) {
	m.backfill.WithLabelValues(status).Inc()
}

// NoOpIngestMetrics drops every observation.
type NoOpIngestMetrics struct{}

func NewNoop() *NoOpIngestMetrics { return &NoOpIngestMetrics{} }

func (NoOpIngestMetrics) RecordOperationAttempt(context.Context, string)                 {}
func (NoOpIngestMetrics) RecordOperationSuccess(context.Context, string)                 {}
func (NoOpIngestMetrics) RecordOperationFailure(context.Context, string)                 {}
func (NoOpIngestMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}
func (NoOpIngestMetrics) RecordRatingFallback(context.Context, string)                   {}
func (NoOpIngestMetrics) RecordSkipped(context.Context)                                  {}
func (NoOpIngestMetrics) RecordBackfillFile(context.Context, string)                     {}

var (
	_ IngestMetrics = (*PrometheusIngestMetrics)(nil)
	_ IngestMetrics = NoOpIngestMetrics{}
)
