package audio

import (
	"context"
)

// Frame is one fixed-size block of mono samples
type Frame struct {
	// Timestamp is the stream position in seconds of the chunk that completed the frame
	Timestamp float64

	// Length is the transform size; always len(Samples)
	Length int

	// DesiredBands is advisory, it sizes the display bands only
	DesiredBands int

	Samples []float64
}

// FrameHandler consumes frames in capture order
type FrameHandler func(ctx context.Context, frame Frame) error

// Source produces frames until its input ends or ctx is cancelled
type Source interface {
	Stream(ctx context.Context, handle FrameHandler) error
}
