package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bnema/siteback/internal/domain"
)

// Metrics holds siteback OTel metric instruments.
type Metrics struct {
	// Runs
	RunTotal    metric.Int64Counter
	RunDuration metric.Float64Histogram
	RunFailures metric.Int64Counter

	// Uploads
	UploadTotal  metric.Int64Counter
	UploadBytes  metric.Int64Counter
	UploadErrors metric.Int64Counter
}

// NewMetrics creates and registers all siteback metric instruments.
// All fields are always initialized; OTel returns noop instruments when
// no MeterProvider is set.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("siteback")
	m := &Metrics{}
	var err error

	if m.RunTotal, err = meter.Int64Counter("siteback.run.total",
		metric.WithDescription("Total number of backup runs")); err != nil {
		return nil, err
	}
	if m.RunDuration, err = meter.Float64Histogram("siteback.run.duration_seconds",
		metric.WithDescription("Backup run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 900, 1800)); err != nil {
		return nil, err
	}
	if m.RunFailures, err = meter.Int64Counter("siteback.run.failures",
		metric.WithDescription("Total failed backup runs")); err != nil {
		return nil, err
	}
	if m.UploadTotal, err = meter.Int64Counter("siteback.upload.total",
		metric.WithDescription("Total archive uploads attempted")); err != nil {
		return nil, err
	}
	if m.UploadBytes, err = meter.Int64Counter("siteback.upload.bytes",
		metric.WithDescription("Total bytes uploaded to object storage"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.UploadErrors, err = meter.Int64Counter("siteback.upload.errors",
		metric.WithDescription("Total failed archive uploads")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRun records one finished run.
func (m *Metrics) RecordRun(ctx context.Context, result domain.RunResult) {
	attrs := metric.WithAttributes(
		attribute.String("status", string(result.Status)),
		attribute.String("mode", string(result.Mode)),
	)
	m.RunTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, result.DurationSeconds, attrs)
	if !result.Succeeded() {
		m.RunFailures.Add(ctx, 1, attrs)
	}
}

// RecordUpload records one upload attempt.
func (m *Metrics) RecordUpload(ctx context.Context, category string, outcome domain.UploadOutcome, sizeBytes int64) {
	attrs := metric.WithAttributes(
		attribute.String("category", category),
		attribute.Bool("ok", outcome.OK),
		attribute.Int("http_status", outcome.HTTPStatus),
	)
	m.UploadTotal.Add(ctx, 1, attrs)
	if outcome.OK {
		m.UploadBytes.Add(ctx, sizeBytes, metric.WithAttributes(attribute.String("category", category)))
		return
	}
	m.UploadErrors.Add(ctx, 1, attrs)
}
