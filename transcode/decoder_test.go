package transcode

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDecoderConfig(t *testing.T) {
	d := NewDecoder(nil)
	assert.Equal(t, 44100, d.config.SampleRate)
	assert.Equal(t, "ffmpeg", d.config.FFmpegPath)
}

func TestArgs(t *testing.T) {
	d := NewDecoder(&DecoderConfig{SampleRate: 16000, FFmpegPath: "ffmpeg"})
	args := d.Args("beatbox.wav")

	assert.Equal(t, []string{
		"-v", "error",
		"-nostdin",
		"-i", "beatbox.wav",
		"-map", "0:a:0?",
		"-vn",
		"-f", "f32le",
		"-ac", "1",
		"-ar", "16000",
		"-af", "aresample=16000",
		"pipe:1",
	}, args)
}

func TestArgsWithDurationAndNormalization(t *testing.T) {
	d := NewDecoder(&DecoderConfig{
		SampleRate:  44100,
		FFmpegPath:  "ffmpeg",
		MaxDuration: 1500 * time.Millisecond,
		Normalize:   true,
	})
	args := d.Args("-")

	assert.Contains(t, args, "1.500")
	assert.Equal(t, "aresample=44100,dynaudnorm", args[len(args)-2])
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestOpenFailsWithoutBinary(t *testing.T) {
	d := NewDecoder(&DecoderConfig{SampleRate: 44100, FFmpegPath: "/nonexistent/ffmpeg"})

	assert.Error(t, d.Available())

	stream, err := d.Open(context.Background(), "input.wav")
	require.Error(t, err)
	assert.Nil(t, stream)
}

func TestOpenRejectsEmptyInput(t *testing.T) {
	_, err := NewDecoder(nil).Open(context.Background(), "")
	assert.Error(t, err)
}
