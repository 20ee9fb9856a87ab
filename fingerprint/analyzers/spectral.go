package analyzers

import (
	"fmt"
	"sync"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"github.com/RyanBlaney/sonido-vox/algorithms/spectral"
	"github.com/RyanBlaney/sonido-vox/algorithms/windowing"
	"github.com/RyanBlaney/sonido-vox/logging"
)

// SpectralAnalyzer turns one time-domain frame into band magnitudes
type SpectralAnalyzer struct {
	sampleRate int
	windowType windowing.Type
	fft        *spectral.FFT
	interp     *common.Interpolator
	logger     logging.Logger

	mu      sync.Mutex
	windows map[int]*windowing.Window
}

// Spectrum holds the analysis of one frame
type Spectrum struct {
	SampleRate  int `json:"sample_rate"`
	FrameLength int `json:"frame_length"`

	// Magnitudes has FrameLength/2+1 bins from DC to Nyquist; this is what
	// the cepstrum extractor consumes.
	Magnitudes []float64 `json:"magnitudes"`

	// Bands is Magnitudes regrouped into the requested number of linear
	// bands between 0 Hz and Nyquist, for display.
	Bands []float64 `json:"bands"`
}

// Nyquist returns half the sample rate
func (s *Spectrum) Nyquist() float64 {
	return float64(s.SampleRate) / 2.0
}

// NewSpectralAnalyzer creates a new spectral analyzer
func NewSpectralAnalyzer(sampleRate int, windowType windowing.Type) *SpectralAnalyzer {
	return &SpectralAnalyzer{
		sampleRate: sampleRate,
		windowType: windowType,
		fft:        spectral.NewFFT(),
		interp:     common.NewInterpolator(),
		windows:    make(map[int]*windowing.Window),
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_analyzer",
			"sample_rate": sampleRate,
		}),
	}
}

// window returns the cached window for a frame length, generating it on first use
func (sa *SpectralAnalyzer) window(size int) (*windowing.Window, error) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if w, ok := sa.windows[size]; ok {
		return w, nil
	}

	w, err := windowing.New(sa.windowType, size, false)
	if err != nil {
		return nil, err
	}
	sa.windows[size] = w

	sa.logger.Debug("Generated analysis window", logging.Fields{
		"window": string(sa.windowType),
		"size":   size,
	})
	return w, nil
}

// Analyze windows the frame, transforms it and derives magnitudes and
// display bands. desiredBandCount only affects Bands.
func (sa *SpectralAnalyzer) Analyze(samples []float64, frameLength, desiredBandCount int) (*Spectrum, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if len(samples) != frameLength {
		return nil, fmt.Errorf("frame carries %d samples, expected %d", len(samples), frameLength)
	}

	w, err := sa.window(frameLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	windowed, err := w.Apply(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to apply window: %w", err)
	}

	spectrum := &Spectrum{
		SampleRate:  sa.sampleRate,
		FrameLength: frameLength,
		Magnitudes:  sa.fft.MagnitudeSpectrum(windowed),
	}

	if desiredBandCount > 0 {
		spectrum.Bands = sa.interp.LinearBands(spectrum.Magnitudes, spectrum.Nyquist(), 0, spectrum.Nyquist(), desiredBandCount)
	}

	return spectrum, nil
}
