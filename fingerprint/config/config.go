package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-vox/algorithms/spectral"
	"github.com/RyanBlaney/sonido-vox/algorithms/stats"
	"github.com/RyanBlaney/sonido-vox/algorithms/windowing"
	"github.com/RyanBlaney/sonido-vox/logging"
)

// Config is the full set of tunables for a recognition session
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`

	Training   TrainingConfig   `mapstructure:"training" yaml:"training" json:"training"`
	Features   FeatureConfig    `mapstructure:"features" yaml:"features" json:"features"`
	Capture    CaptureConfig    `mapstructure:"capture" yaml:"capture" json:"capture"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier" json:"classifier"`
	Transcode  TranscodeConfig  `mapstructure:"transcode" yaml:"transcode" json:"transcode"`
}

// TrainingConfig controls the train-then-predict workflow
type TrainingConfig struct {
	RequiredCount               int     `mapstructure:"required_count" yaml:"required_count" json:"required_count"`
	ProbabilityThresholdPercent float64 `mapstructure:"probability_threshold_percent" yaml:"probability_threshold_percent" json:"probability_threshold_percent"`

	// Async trains on a worker goroutine instead of the frame producer
	Async bool `mapstructure:"async" yaml:"async" json:"async"`
}

// FeatureConfig controls MFCC extraction
type FeatureConfig struct {
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate"`
	NumFilters int `mapstructure:"num_filters" yaml:"num_filters" json:"num_filters"`
	NumCoeffs  int `mapstructure:"num_coeffs" yaml:"num_coeffs" json:"num_coeffs"`
}

// CaptureConfig controls how the sample stream is cut into frames
type CaptureConfig struct {
	FrameLength  int    `mapstructure:"frame_length" yaml:"frame_length" json:"frame_length"`
	DesiredBands int    `mapstructure:"desired_bands" yaml:"desired_bands" json:"desired_bands"`
	ChunkSize    int    `mapstructure:"chunk_size" yaml:"chunk_size" json:"chunk_size"`
	Window       string `mapstructure:"window" yaml:"window" json:"window"`

	// LevelThreshold gates framing on the smoothed input level; 0 disables the gate
	LevelThreshold float64 `mapstructure:"level_threshold" yaml:"level_threshold" json:"level_threshold"`

	// DCCutoffHz enables a DC blocker on the capture path; 0 disables it
	DCCutoffHz float64 `mapstructure:"dc_cutoff_hz" yaml:"dc_cutoff_hz" json:"dc_cutoff_hz"`
}

// ClassifierConfig controls the kNN-DTW classifier
type ClassifierConfig struct {
	K       int    `mapstructure:"k" yaml:"k" json:"k"`
	DTWBand int    `mapstructure:"dtw_band" yaml:"dtw_band" json:"dtw_band"`
	Metric  string `mapstructure:"metric" yaml:"metric" json:"metric"`
}

// TranscodeConfig controls the ffmpeg decoder used for file input
type TranscodeConfig struct {
	FFmpegPath string        `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path" json:"ffmpeg_path"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns the stock capture tunables:
// 1024-sample frames at 44.1 kHz, 48 filters, 12 coefficients, 500
// training frames and a 55% confidence threshold.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Training: TrainingConfig{
			RequiredCount:               500,
			ProbabilityThresholdPercent: 55.0,
			Async:                       false,
		},
		Features: FeatureConfig{
			SampleRate: 44100,
			NumFilters: 48,
			NumCoeffs:  12,
		},
		Capture: CaptureConfig{
			FrameLength:    1024,
			DesiredBands:   512,
			ChunkSize:      256,
			Window:         string(windowing.Hann),
			LevelThreshold: 55.0,
		},
		Classifier: ClassifierConfig{
			K:       3,
			DTWBand: -1,
			Metric:  "euclidean",
		},
		Transcode: TranscodeConfig{
			FFmpegPath: "ffmpeg",
			Timeout:    5 * time.Minute,
		},
	}
}

// BinSize returns the magnitude vector length implied by the frame length
func (c *Config) BinSize() int {
	return spectral.BinSizeForFrame(c.Capture.FrameLength)
}

// MFCCParams derives the extractor parameters
func (c *Config) MFCCParams() spectral.MFCCParams {
	return spectral.MFCCParams{
		SampleRate:      c.Features.SampleRate,
		NumFilters:      c.Features.NumFilters,
		NumCoefficients: c.Features.NumCoeffs,
		BinSize:         c.BinSize(),
	}
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	positive("training.required_count", c.Training.RequiredCount)
	if c.Training.ProbabilityThresholdPercent < 0 || c.Training.ProbabilityThresholdPercent > 100 {
		errs = append(errs, fmt.Errorf("training.probability_threshold_percent must be within [0, 100], got %g",
			c.Training.ProbabilityThresholdPercent))
	}

	positive("features.sample_rate", c.Features.SampleRate)
	positive("features.num_filters", c.Features.NumFilters)
	positive("features.num_coeffs", c.Features.NumCoeffs)
	if c.Features.NumFilters == 1 {
		errs = append(errs, errors.New("features.num_filters must be at least 2 to leave room for a coefficient"))
	}

	positive("capture.frame_length", c.Capture.FrameLength)
	positive("capture.desired_bands", c.Capture.DesiredBands)
	positive("capture.chunk_size", c.Capture.ChunkSize)
	if c.Capture.DCCutoffHz < 0 || (c.Features.SampleRate > 0 && c.Capture.DCCutoffHz >= float64(c.Features.SampleRate)/2) {
		errs = append(errs, fmt.Errorf("capture.dc_cutoff_hz must be within [0, nyquist), got %g", c.Capture.DCCutoffHz))
	}
	if c.Capture.LevelThreshold < 0 {
		errs = append(errs, fmt.Errorf("capture.level_threshold must not be negative, got %g", c.Capture.LevelThreshold))
	}
	if _, err := windowing.ParseType(c.Capture.Window); err != nil {
		errs = append(errs, fmt.Errorf("capture.window: %w", err))
	}

	positive("classifier.k", c.Classifier.K)
	if _, ok := stats.ParseDistanceMetric(c.Classifier.Metric); !ok {
		errs = append(errs, fmt.Errorf("classifier.metric: unknown metric %q", c.Classifier.Metric))
	}

	return errors.Join(errs...)
}
