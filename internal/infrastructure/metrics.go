package infrastructure

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "covidcli/internal/errors"
)

// PipelineMetrics are the counters and histograms recorded by the commands.
// All methods are safe on a nil receiver so callers can run without telemetry.
type PipelineMetrics struct {
	estimations      metric.Int64Counter
	correctionFactor metric.Float64Histogram
	fits             metric.Int64Counter
	charts           metric.Int64Counter
	rowsRead         metric.Int64Counter
}

// NewPipelineMetrics creates the instruments on meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	estimations, err := meter.Int64Counter(
		"estimations",
		metric.WithDescription("Fatal-infection estimations by region and outcome"),
	)
	if err != nil {
		return nil, err
	}

	correctionFactor, err := meter.Float64Histogram(
		"correction_factor",
		metric.WithDescription("Mass correction factor applied after smoothing"),
		metric.WithExplicitBucketBoundaries(0.9, 0.95, 0.99, 1, 1.01, 1.05, 1.1, 1.25, 1.5),
	)
	if err != nil {
		return nil, err
	}

	fits, err := meter.Int64Counter(
		"fit_segments",
		metric.WithDescription("Log-linear fit segments by outcome"),
	)
	if err != nil {
		return nil, err
	}

	charts, err := meter.Int64Counter(
		"charts_rendered",
		metric.WithDescription("Charts written to disk"),
	)
	if err != nil {
		return nil, err
	}

	rowsRead, err := meter.Int64Counter(
		"rows_read",
		metric.WithDescription("Data rows read from published sources"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		estimations:      estimations,
		correctionFactor: correctionFactor,
		fits:             fits,
		charts:           charts,
		rowsRead:         rowsRead,
	}, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if t := apperrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "error"
}

// RecordEstimation counts one estimation and, on success, its correction factor.
func (m *PipelineMetrics) RecordEstimation(ctx context.Context, region string, factor float64, err error) {
	if m == nil {
		return
	}
	m.estimations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("region", region),
		attribute.String("outcome", outcome(err)),
	))
	if err == nil {
		m.correctionFactor.Record(ctx, factor, metric.WithAttributes(attribute.String("region", region)))
	}
}

// RecordFit counts one fit segment.
func (m *PipelineMetrics) RecordFit(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.fits.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
}

// RecordChart counts one rendered chart.
func (m *PipelineMetrics) RecordChart(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.charts.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordRows counts rows read from source.
func (m *PipelineMetrics) RecordRows(ctx context.Context, source string, n int) {
	if m == nil {
		return
	}
	m.rowsRead.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}
