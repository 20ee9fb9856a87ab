package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr, false)

	logger.Debug("hidden")
	logger.Info("frame", Fields{"count": 3, "band": "low"})
	logger.Error(errors.New("boom"), "extract failed")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "[INFO] frame band=low count=3")
	assert.Contains(t, stderr.String(), "[ERROR] extract failed: boom")
}

func TestWithFieldsSharesLevel(t *testing.T) {
	var stdout bytes.Buffer
	root := NewDefaultLoggerWithWriters(&stdout, &stdout, false)
	child := root.WithFields(Fields{"component": "pipeline"})

	root.SetLevel(DebugLevel)
	child.Debug("dropped frame")

	assert.Contains(t, stdout.String(), "[DEBUG] dropped frame component=pipeline")
}

func TestWithContextPicksUpFields(t *testing.T) {
	var stdout bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stdout, false)

	ctx := ContextWithFields(context.Background(), Fields{"session": "abc"})
	logger.WithContext(ctx).Info("started")

	assert.Contains(t, stdout.String(), "session=abc")
}
