package audio

import (
	"fmt"
	"slices"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"github.com/RyanBlaney/sonido-vox/algorithms/filters"
)

// FramerConfig configures frame assembly
type FramerConfig struct {
	SampleRate   int
	FrameLength  int
	DesiredBands int

	// LevelThreshold drops chunks while the smoothed level is at or below it; 0 keeps everything
	LevelThreshold float64

	// DCCutoffHz enables a DC blocker ahead of the level meter; 0 disables it
	DCCutoffHz float64
}

// Framer assembles capture chunks into frames. Not safe for concurrent use;
// it belongs to the capture goroutine.
type Framer struct {
	cfg      FramerConfig
	meter    *LevelMeter
	dc       *filters.DCRemoval
	window   *common.SlidingWindow
	position int64 // samples seen, gated or not
}

// NewFramer validates cfg and creates a framer
func NewFramer(cfg FramerConfig) (*Framer, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.FrameLength <= 0 {
		return nil, fmt.Errorf("frame length must be positive, got %d", cfg.FrameLength)
	}

	f := &Framer{
		cfg:    cfg,
		meter:  NewLevelMeter(DefaultLevelSmoothing),
		window: common.NewSlidingWindow(cfg.FrameLength, cfg.FrameLength),
	}

	if cfg.DCCutoffHz > 0 {
		dc, err := filters.NewDCRemovalWithCutoff(cfg.SampleRate, cfg.DCCutoffHz)
		if err != nil {
			return nil, fmt.Errorf("invalid DC blocker: %w", err)
		}
		f.dc = dc
	}

	return f, nil
}

// Push feeds one chunk and returns any frames it completed
func (f *Framer) Push(chunk []float64) []Frame {
	timestamp := float64(f.position) / float64(f.cfg.SampleRate)
	f.position += int64(len(chunk))

	if f.dc != nil {
		chunk = slices.Clone(chunk)
		f.dc.ProcessInPlace(chunk)
	}

	level := f.meter.Update(chunk)
	if f.cfg.LevelThreshold > 0 && level <= f.cfg.LevelThreshold {
		return nil
	}

	blocks := f.window.AddSamples(chunk)
	if len(blocks) == 0 {
		return nil
	}

	frames := make([]Frame, len(blocks))
	for i, samples := range blocks {
		frames[i] = Frame{
			Timestamp:    timestamp,
			Length:       f.cfg.FrameLength,
			DesiredBands: f.cfg.DesiredBands,
			Samples:      samples,
		}
	}
	return frames
}

// Level returns the current smoothed input level
func (f *Framer) Level() float64 {
	return f.meter.Level()
}

// Reset drops the partial frame and the level history
func (f *Framer) Reset() {
	f.window.Reset()
	f.meter.Reset()
	if f.dc != nil {
		f.dc.Reset()
	}
}
