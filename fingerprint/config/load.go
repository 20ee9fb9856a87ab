package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults registers every key of DefaultConfig on v so env variables and
// partial config files resolve against complete defaults.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("training.required_count", d.Training.RequiredCount)
	v.SetDefault("training.probability_threshold_percent", d.Training.ProbabilityThresholdPercent)
	v.SetDefault("training.async", d.Training.Async)

	v.SetDefault("features.sample_rate", d.Features.SampleRate)
	v.SetDefault("features.num_filters", d.Features.NumFilters)
	v.SetDefault("features.num_coeffs", d.Features.NumCoeffs)

	v.SetDefault("capture.frame_length", d.Capture.FrameLength)
	v.SetDefault("capture.desired_bands", d.Capture.DesiredBands)
	v.SetDefault("capture.chunk_size", d.Capture.ChunkSize)
	v.SetDefault("capture.window", d.Capture.Window)
	v.SetDefault("capture.level_threshold", d.Capture.LevelThreshold)
	v.SetDefault("capture.dc_cutoff_hz", d.Capture.DCCutoffHz)

	v.SetDefault("classifier.k", d.Classifier.K)
	v.SetDefault("classifier.dtw_band", d.Classifier.DTWBand)
	v.SetDefault("classifier.metric", d.Classifier.Metric)

	v.SetDefault("transcode.ffmpeg_path", d.Transcode.FFmpegPath)
	v.SetDefault("transcode.timeout", d.Transcode.Timeout)
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
