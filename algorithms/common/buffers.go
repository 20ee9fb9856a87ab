package common

// SlidingWindow cuts a continuous sample stream into fixed-size frames.
// With hopSize == windowSize frames do not overlap.
type SlidingWindow struct {
	buffer     []float64
	windowSize int
	hopSize    int
	writePos   int
}

// NewSlidingWindow creates a new sliding window. A hop outside
// (0, windowSize] is treated as windowSize.
func NewSlidingWindow(windowSize, hopSize int) *SlidingWindow {
	if hopSize <= 0 || hopSize > windowSize {
		hopSize = windowSize
	}
	return &SlidingWindow{
		buffer:     make([]float64, windowSize),
		windowSize: windowSize,
		hopSize:    hopSize,
	}
}

// AddSamples adds samples and returns every frame completed by them.
// Returned frames are fresh copies owned by the caller.
func (sw *SlidingWindow) AddSamples(samples []float64) [][]float64 {
	if sw.windowSize <= 0 {
		return nil
	}

	var frames [][]float64
	for len(samples) > 0 {
		n := copy(sw.buffer[sw.writePos:], samples)
		sw.writePos += n
		samples = samples[n:]

		if sw.writePos < sw.windowSize {
			break
		}

		frame := make([]float64, sw.windowSize)
		copy(frame, sw.buffer)
		frames = append(frames, frame)

		copy(sw.buffer, sw.buffer[sw.hopSize:])
		sw.writePos = sw.windowSize - sw.hopSize
	}

	return frames
}

// Buffered returns how many samples are waiting for the next frame
func (sw *SlidingWindow) Buffered() int {
	return sw.writePos
}

// Reset drops any partially collected frame
func (sw *SlidingWindow) Reset() {
	sw.writePos = 0
	clear(sw.buffer)
}
