package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500, cfg.Training.RequiredCount)
	assert.Equal(t, 55.0, cfg.Training.ProbabilityThresholdPercent)
	assert.Equal(t, 48, cfg.Features.NumFilters)
	assert.Equal(t, 12, cfg.Features.NumCoeffs)
	assert.Equal(t, 44100, cfg.Features.SampleRate)
	assert.Equal(t, 513, cfg.BinSize())

	params := cfg.MFCCParams()
	assert.Equal(t, 513, params.BinSize)
	assert.Equal(t, 12, params.NumCoefficients)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "chatty"
	cfg.Training.RequiredCount = 0
	cfg.Training.ProbabilityThresholdPercent = 120
	cfg.Features.NumFilters = 1
	cfg.Capture.FrameLength = -1
	cfg.Capture.Window = "kaiser"
	cfg.Classifier.Metric = "hamming"

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"unknown log level",
		"training.required_count",
		"probability_threshold_percent",
		"num_filters must be at least 2",
		"capture.frame_length",
		"capture.window",
		"classifier.metric",
	} {
		assert.Contains(t, msg, want)
	}
}
