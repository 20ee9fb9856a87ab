package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/RyanBlaney/sonido-vox/logging"
)

const bytesPerSample = 4

// ReaderSource reads little-endian float32 mono PCM from an io.Reader
type ReaderSource struct {
	reader    io.Reader
	framer    *Framer
	chunkSize int
	logger    logging.Logger
}

// NewReaderSource wraps r. chunkSize is the number of samples handed to the
// framer per read, mirroring a hardware callback buffer.
func NewReaderSource(r io.Reader, cfg FramerConfig, chunkSize int) (*ReaderSource, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	framer, err := NewFramer(cfg)
	if err != nil {
		return nil, err
	}

	return &ReaderSource{
		reader:    r,
		framer:    framer,
		chunkSize: chunkSize,
		logger: logging.WithFields(logging.Fields{
			"component":    "reader_source",
			"frame_length": cfg.FrameLength,
			"chunk_size":   chunkSize,
		}),
	}, nil
}

// Stream reads until EOF, delivering every completed frame to handle.
// A trailing partial sample (fewer than 4 bytes) is discarded.
func (s *ReaderSource) Stream(ctx context.Context, handle FrameHandler) error {
	buf := make([]byte, s.chunkSize*bytesPerSample)
	chunk := make([]float64, s.chunkSize)
	var frames int

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := io.ReadFull(s.reader, buf)
		samples := n / bytesPerSample
		if samples > 0 {
			for i := range samples {
				bits := binary.LittleEndian.Uint32(buf[i*bytesPerSample:])
				chunk[i] = float64(math.Float32frombits(bits))
			}

			for _, frame := range s.framer.Push(chunk[:samples]) {
				frames++
				if err := handle(ctx, frame); err != nil {
					return err
				}
			}
		}

		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			s.logger.Debug("Reached end of input", logging.Fields{"frames": frames})
			return nil
		default:
			return fmt.Errorf("failed to read PCM: %w", readErr)
		}
	}
}

// Level returns the current smoothed input level
func (s *ReaderSource) Level() float64 {
	return s.framer.Level()
}

// EncodeFloat32 writes samples as little-endian float32 PCM, the format ReaderSource reads
func EncodeFloat32(w io.Writer, samples []float64) error {
	buf := make([]byte, len(samples)*bytesPerSample)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(buf[i*bytesPerSample:], math.Float32bits(float32(v)))
	}
	_, err := w.Write(buf)
	return err
}
