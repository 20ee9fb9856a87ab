package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/RyanBlaney/sonido-vox/algorithms/spectral"
	"github.com/RyanBlaney/sonido-vox/algorithms/stats"
	"github.com/RyanBlaney/sonido-vox/algorithms/windowing"
	"github.com/RyanBlaney/sonido-vox/audio"
	"github.com/RyanBlaney/sonido-vox/fingerprint/analyzers"
	"github.com/RyanBlaney/sonido-vox/fingerprint/classifier"
	"github.com/RyanBlaney/sonido-vox/fingerprint/config"
	"github.com/RyanBlaney/sonido-vox/fingerprint/recognizer"
	"github.com/RyanBlaney/sonido-vox/transcode"
)

// newExtractionStage builds the analyzer and the MFCC extractor for cfg
func newExtractionStage(cfg *config.Config) (*analyzers.SpectralAnalyzer, *spectral.MFCC, error) {
	mfcc, err := spectral.NewMFCC(cfg.MFCCParams())
	if err != nil {
		return nil, nil, err
	}

	window, err := windowing.ParseType(cfg.Capture.Window)
	if err != nil {
		return nil, nil, err
	}

	return analyzers.NewSpectralAnalyzer(cfg.Features.SampleRate, window), mfcc, nil
}

// newClassifier builds the kNN-DTW classifier for cfg
func newClassifier(cfg *config.Config) (*classifier.KNNDTW, error) {
	metric, ok := stats.ParseDistanceMetric(cfg.Classifier.Metric)
	if !ok {
		return nil, fmt.Errorf("unknown distance metric %q", cfg.Classifier.Metric)
	}
	return classifier.NewKNNDTW(classifier.KNNDTWParams{
		K:              cfg.Classifier.K,
		ConstraintBand: cfg.Classifier.DTWBand,
		Metric:         metric,
	}), nil
}

func controllerConfig(cfg *config.Config) recognizer.ControllerConfig {
	return recognizer.ControllerConfig{
		RequiredCount:               cfg.Training.RequiredCount,
		ProbabilityThresholdPercent: cfg.Training.ProbabilityThresholdPercent,
		AsyncTraining:               cfg.Training.Async,
	}
}

func framerConfig(cfg *config.Config) audio.FramerConfig {
	return audio.FramerConfig{
		SampleRate:     cfg.Features.SampleRate,
		FrameLength:    cfg.Capture.FrameLength,
		DesiredBands:   cfg.Capture.DesiredBands,
		LevelThreshold: cfg.Capture.LevelThreshold,
		DCCutoffHz:     cfg.Capture.DCCutoffHz,
	}
}

// openInput returns a PCM stream for path. Raw inputs are read as f32le
// mono at the configured sample rate ("-" is stdin); anything else goes
// through ffmpeg.
func openInput(ctx context.Context, cfg *config.Config, path string, raw bool) (io.ReadCloser, error) {
	if raw {
		if path == "-" {
			return io.NopCloser(os.Stdin), nil
		}
		return os.Open(path)
	}

	decoder := transcode.NewDecoder(&transcode.DecoderConfig{
		SampleRate: cfg.Features.SampleRate,
		FFmpegPath: cfg.Transcode.FFmpegPath,
		Timeout:    cfg.Transcode.Timeout,
	})
	if err := decoder.Available(); err != nil {
		return nil, fmt.Errorf("%w (use --raw for f32le input)", err)
	}
	return decoder.Open(ctx, path)
}

// streamInput frames the PCM at path and hands every frame to handle
func streamInput(ctx context.Context, cfg *config.Config, path string, raw bool, handle audio.FrameHandler) error {
	input, err := openInput(ctx, cfg, path, raw)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	source, err := audio.NewReaderSource(input, framerConfig(cfg), cfg.Capture.ChunkSize)
	if err != nil {
		input.Close()
		return err
	}

	streamErr := source.Stream(ctx, handle)
	closeErr := input.Close()
	if streamErr != nil {
		return fmt.Errorf("failed to stream %s: %w", path, streamErr)
	}
	return closeErr
}
