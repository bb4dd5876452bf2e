// Package observe holds the OpenTelemetry metrics, tracing and trace-aware
// logging used by the shift processing service.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported to
// Prometheus by [InitProvider]. Tests should build their own [Metrics] with
// [NewMetrics] and a manual reader instead of using [DefaultMetrics].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/jflaig13/mise-core-sub000"

// Metrics holds every instrument. All fields are safe for concurrent use.
type Metrics struct {
	// Shifts counts processed transcripts by status ("ok" or "failed") and
	// shift code.
	Shifts metric.Int64Counter

	// StageFailures counts structured failures by stage and kind.
	StageFailures metric.Int64Counter

	// UnresolvedNames counts name occurrences sent to manual review.
	UnresolvedNames metric.Int64Counter

	// TipsDistributed sums the server tips of every successful shift.
	TipsDistributed metric.Float64Counter

	// SinkWrites counts record saves by sink and status.
	SinkWrites metric.Int64Counter

	// ProcessDuration is the time to turn one transcript into a record.
	ProcessDuration metric.Float64Histogram
}

// Processing is pure CPU work on short text; buckets sit well under a second.
var durationBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Shifts, err = m.Int64Counter("tipsheet.shifts",
		metric.WithDescription("Transcripts processed by status and shift code."),
	); err != nil {
		return nil, err
	}
	if met.StageFailures, err = m.Int64Counter("tipsheet.stage.failures",
		metric.WithDescription("Structured processing failures by stage and kind."),
	); err != nil {
		return nil, err
	}
	if met.UnresolvedNames, err = m.Int64Counter("tipsheet.unresolved_names",
		metric.WithDescription("Spoken names that matched no roster entry."),
	); err != nil {
		return nil, err
	}
	if met.TipsDistributed, err = m.Float64Counter("tipsheet.tips.distributed",
		metric.WithDescription("Server tips distributed by successful shifts."),
		metric.WithUnit("USD"),
	); err != nil {
		return nil, err
	}
	if met.SinkWrites, err = m.Int64Counter("tipsheet.sink.writes",
		metric.WithDescription("Shift record saves by sink and status."),
	); err != nil {
		return nil, err
	}
	if met.ProcessDuration, err = m.Float64Histogram("tipsheet.process.duration",
		metric.WithDescription("Time to turn one transcript into a validated record."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], created on first use
// from [otel.GetMeterProvider]. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordShift counts one processed transcript.
func (m *Metrics) RecordShift(ctx context.Context, status, code string) {
	m.Shifts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("shift_code", code),
	))
}

// RecordStageFailure counts one structured failure.
func (m *Metrics) RecordStageFailure(ctx context.Context, stage, kind string) {
	m.StageFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("kind", kind),
	))
}

// RecordSinkWrite counts one record save.
func (m *Metrics) RecordSinkWrite(ctx context.Context, sink, status string) {
	m.SinkWrites.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("status", status),
	))
}
