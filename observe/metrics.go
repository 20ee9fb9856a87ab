// Package observe holds the OpenTelemetry instruments for the recognition
// pipeline. Without a configured MeterProvider the global no-op provider is
// used and recording costs next to nothing, which keeps the instruments safe
// to call from the frame producer.
package observe

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/RyanBlaney/sonido-vox"

// Drop reasons recorded on sonido_vox.frames.dropped
const (
	DropAnalysis     = "analysis"
	DropSizeMismatch = "size_mismatch"
	DropExtraction   = "extraction"
	DropPanic        = "panic"
)

// Metrics holds the pipeline instruments. Safe for concurrent use.
type Metrics struct {
	FramesProcessed metric.Int64Counter

	// FramesDropped is recorded with attribute.String("reason", ...)
	FramesDropped metric.Int64Counter

	// TrainingSamples is recorded with attribute.String("label", ...)
	TrainingSamples metric.Int64Counter

	// Predictions is recorded with attribute.String("label", ...), attribute.Bool("confident", ...)
	Predictions metric.Int64Counter

	// ExtractionDuration covers analysis plus cepstrum extraction for one frame
	ExtractionDuration metric.Float64Histogram

	// TrainingDuration covers one classifier Train call
	TrainingDuration metric.Float64Histogram
}

// frameBuckets (seconds) bracket one 1024-sample frame period at 44.1 kHz (~23 ms)
var frameBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.023, 0.05, 0.1,
}

var trainingBuckets = []float64{
	0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates every instrument from mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesProcessed, err = m.Int64Counter("sonido_vox.frames.processed",
		metric.WithDescription("Frames that produced a feature vector."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("sonido_vox.frames.dropped",
		metric.WithDescription("Frames rejected before reaching the controller, by reason."),
	); err != nil {
		return nil, err
	}
	if met.TrainingSamples, err = m.Int64Counter("sonido_vox.training.samples",
		metric.WithDescription("Feature vectors accumulated for training, by label."),
	); err != nil {
		return nil, err
	}
	if met.Predictions, err = m.Int64Counter("sonido_vox.predictions",
		metric.WithDescription("Serviced listen requests, by predicted label and confidence."),
	); err != nil {
		return nil, err
	}
	if met.ExtractionDuration, err = m.Float64Histogram("sonido_vox.extraction.duration",
		metric.WithDescription("Time from frame delivery to feature vector."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TrainingDuration, err = m.Float64Histogram("sonido_vox.training.duration",
		metric.WithDescription("Duration of one classifier training run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(trainingBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level instance built from otel.GetMeterProvider.
// Panics if instrument creation fails, which the global provider never does.
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

// RecordFrame counts a processed frame and its extraction latency
func (m *Metrics) RecordFrame(ctx context.Context, elapsed time.Duration) {
	m.FramesProcessed.Add(ctx, 1)
	m.ExtractionDuration.Record(ctx, elapsed.Seconds())
}

// RecordDrop counts a dropped frame
func (m *Metrics) RecordDrop(ctx context.Context, reason string) {
	m.FramesDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordTrainingSample counts one accumulated training vector
func (m *Metrics) RecordTrainingSample(ctx context.Context, label string) {
	m.TrainingSamples.Add(ctx, 1, metric.WithAttributes(attribute.String("label", label)))
}

// RecordTraining records one classifier training run
func (m *Metrics) RecordTraining(ctx context.Context, elapsed time.Duration, samples int, ok bool) {
	m.TrainingDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("samples", strconv.Itoa(samples)),
		attribute.Bool("ok", ok),
	))
}

// RecordPrediction counts one serviced listen request
func (m *Metrics) RecordPrediction(ctx context.Context, label string, confident bool) {
	m.Predictions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("label", label),
		attribute.Bool("confident", confident),
	))
}
