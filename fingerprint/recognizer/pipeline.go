package recognizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-vox/algorithms/spectral"
	"github.com/RyanBlaney/sonido-vox/audio"
	"github.com/RyanBlaney/sonido-vox/fingerprint/analyzers"
	"github.com/RyanBlaney/sonido-vox/logging"
	"github.com/RyanBlaney/sonido-vox/observe"
)

var (
	// ErrFrameDropped is wrapped by every error DeliverFrame returns
	ErrFrameDropped = errors.New("frame dropped")

	// ErrFramePanic marks a frame whose processing panicked
	ErrFramePanic = errors.New("panic while processing frame")
)

// Analyzer turns a time-domain frame into a magnitude spectrum
type Analyzer interface {
	Analyze(samples []float64, frameLength, desiredBandCount int) (*analyzers.Spectrum, error)
}

// Extractor turns a magnitude spectrum into a feature vector
type Extractor interface {
	Compute(magnitudes []float64) ([]float64, error)
	BinSize() int
}

// FeatureConsumer receives feature vectors in frame order
type FeatureConsumer interface {
	OnFeature(ctx context.Context, vector []float64)
}

// SpectrumObserver sees every analysed frame, e.g. for a spectrum display
type SpectrumObserver func(frame audio.Frame, spectrum *analyzers.Spectrum)

// PipelineOption customizes a Pipeline
type PipelineOption func(*Pipeline)

// WithPipelineMetrics records frame counts and extraction latency on m
func WithPipelineMetrics(m *observe.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithSpectrumObserver calls fn for each frame after analysis
func WithSpectrumObserver(fn SpectrumObserver) PipelineOption {
	return func(p *Pipeline) { p.observer = fn }
}

// Pipeline wires analysis and extraction in front of a FeatureConsumer. A
// frame that cannot be turned into a feature vector is dropped and never
// reaches the consumer.
type Pipeline struct {
	analyzer  Analyzer
	extractor Extractor
	consumer  FeatureConsumer
	observer  SpectrumObserver
	metrics   *observe.Metrics
	logger    logging.Logger
}

// NewPipeline creates a pipeline
func NewPipeline(analyzer Analyzer, extractor Extractor, consumer FeatureConsumer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		analyzer:  analyzer,
		extractor: extractor,
		consumer:  consumer,
		metrics:   observe.DefaultMetrics(),
		logger: logging.WithFields(logging.Fields{
			"component": "pipeline",
			"bin_size":  extractor.BinSize(),
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DeliverFrame processes one frame. The returned error always wraps
// ErrFrameDropped; the pipeline remains usable afterwards.
func (p *Pipeline) DeliverFrame(ctx context.Context, frame audio.Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = p.drop(ctx, frame, observe.DropPanic, fmt.Errorf("%w: %v", ErrFramePanic, r))
		}
	}()

	start := time.Now()

	spectrum, err := p.analyzer.Analyze(frame.Samples, frame.Length, frame.DesiredBands)
	if err != nil {
		return p.drop(ctx, frame, observe.DropAnalysis, err)
	}
	if p.observer != nil {
		p.observer(frame, spectrum)
	}

	if err := p.process(ctx, spectrum.Magnitudes); err != nil {
		return p.drop(ctx, frame, reasonFor(err), err)
	}

	p.metrics.RecordFrame(ctx, time.Since(start))
	return nil
}

// ProcessMagnitudes feeds an already computed magnitude spectrum through
// extraction, bypassing the analyzer.
func (p *Pipeline) ProcessMagnitudes(ctx context.Context, magnitudes []float64) error {
	start := time.Now()
	if err := p.process(ctx, magnitudes); err != nil {
		p.metrics.RecordDrop(ctx, reasonFor(err))
		return fmt.Errorf("%w: %w", ErrFrameDropped, err)
	}
	p.metrics.RecordFrame(ctx, time.Since(start))
	return nil
}

func (p *Pipeline) process(ctx context.Context, magnitudes []float64) error {
	vector, err := p.extractor.Compute(magnitudes)
	if err != nil {
		return err
	}
	p.consumer.OnFeature(ctx, vector)
	return nil
}

// Run streams frames from source until it ends or ctx is cancelled.
// Dropped frames are logged and skipped.
func (p *Pipeline) Run(ctx context.Context, source audio.Source) error {
	return source.Stream(ctx, func(ctx context.Context, frame audio.Frame) error {
		_ = p.DeliverFrame(ctx, frame)
		return nil
	})
}

func (p *Pipeline) drop(ctx context.Context, frame audio.Frame, reason string, err error) error {
	p.metrics.RecordDrop(ctx, reason)
	p.logger.Debug("Dropping frame", logging.Fields{
		"timestamp": frame.Timestamp,
		"length":    frame.Length,
		"reason":    reason,
		"error":     err.Error(),
	})
	return fmt.Errorf("%w at %.3fs (%s): %w", ErrFrameDropped, frame.Timestamp, reason, err)
}

func reasonFor(err error) string {
	if errors.Is(err, spectral.ErrSizeMismatch) {
		return observe.DropSizeMismatch
	}
	return observe.DropExtraction
}

// FeatureFunc adapts a function to FeatureConsumer
type FeatureFunc func(ctx context.Context, vector []float64)

// OnFeature calls f(ctx, vector)
func (f FeatureFunc) OnFeature(ctx context.Context, vector []float64) {
	f(ctx, vector)
}
