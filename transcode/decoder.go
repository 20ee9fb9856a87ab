// Package transcode runs ffmpeg to turn arbitrary audio input into the raw
// mono float32 PCM stream the capture path reads.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-vox/logging"
)

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	SampleRate int           `json:"sample_rate"`
	FFmpegPath string        `json:"ffmpeg_path"` // Path to ffmpeg binary
	Timeout    time.Duration `json:"timeout"`     // Upper bound for one decode, 0 disables

	// MaxDuration truncates the input, 0 decodes everything
	MaxDuration time.Duration `json:"max_duration"`

	// Normalize applies dynaudnorm so quiet recordings clear the level gate
	Normalize bool `json:"normalize"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		SampleRate: 44100,
		FFmpegPath: "ffmpeg", // Assume in PATH
		Timeout:    5 * time.Minute,
	}
}

// Decoder handles audio decoding using FFmpeg
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component":   "audio_decoder",
			"sample_rate": config.SampleRate,
		}),
	}
}

// Available reports whether the configured ffmpeg binary can be found
func (d *Decoder) Available() error {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not available at %q: %w", d.config.FFmpegPath, err)
	}
	return nil
}

// Args returns the ffmpeg arguments that decode input to f32le mono on stdout
func (d *Decoder) Args(input string) []string {
	args := []string{
		"-v", "error", // Suppress verbose output
		"-nostdin",
		"-i", input,
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", d.config.MaxDuration.Seconds()))
	}

	args = append(args,
		"-map", "0:a:0?", // first audio stream, if any
		"-vn",
		"-f", "f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(d.config.SampleRate),
	)

	filters := []string{fmt.Sprintf("aresample=%d", d.config.SampleRate)}
	if d.config.Normalize {
		filters = append(filters, "dynaudnorm")
	}
	args = append(args, "-af", strings.Join(filters, ","))

	return append(args, "pipe:1")
}

// Open starts ffmpeg on input and returns its PCM output. The caller must
// Close the stream; closing before EOF stops ffmpeg.
func (d *Decoder) Open(ctx context.Context, input string) (*Stream, error) {
	if input == "" {
		return nil, errors.New("empty input")
	}

	var cancel context.CancelFunc
	if d.config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	args := d.Args(input)
	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}

	logger := d.logger.WithFields(logging.Fields{"input": input})
	logger.Debug("Running FFmpeg", logging.Fields{
		"command": fmt.Sprintf("%s %s", d.config.FFmpegPath, strings.Join(args, " ")),
	})

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &Stream{
		stdout:  stdout,
		cmd:     cmd,
		cancel:  cancel,
		stderr:  stderr,
		logger:  logger,
		started: time.Now(),
	}, nil
}

// Stream is the stdout of a running ffmpeg process
type Stream struct {
	stdout  io.ReadCloser
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	stderr  *bytes.Buffer
	logger  logging.Logger
	started time.Time

	mu       sync.Mutex
	finished bool
	read     int64

	closeOnce sync.Once
	closeErr  error
}

// Read reads decoded PCM bytes
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)

	s.mu.Lock()
	s.read += int64(n)
	if errors.Is(err, io.EOF) {
		s.finished = true
	}
	s.mu.Unlock()

	return n, err
}

// Close waits for ffmpeg to exit. An ffmpeg failure after a complete read
// is returned with its stderr; a stream closed early is not an error.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		finished := s.finished
		read := s.read
		s.mu.Unlock()

		if !finished {
			s.cancel()
		}
		waitErr := s.cmd.Wait()
		s.cancel()

		if finished && waitErr != nil {
			s.closeErr = fmt.Errorf("ffmpeg decode failed: %w, stderr: %s",
				waitErr, strings.TrimSpace(s.stderr.String()))
			s.logger.Error(waitErr, "FFmpeg decode failed", logging.Fields{
				"stderr": s.stderr.String(),
			})
			return
		}

		s.logger.Debug("FFmpeg decode completed", logging.Fields{
			"output_bytes": read,
			"complete":     finished,
			"decode_time":  time.Since(s.started).Seconds(),
		})
	})
	return s.closeErr
}
