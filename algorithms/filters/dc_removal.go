package filters

import (
	"fmt"
	"math"
)

// DCRemoval is a one-pole DC blocking filter:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
//
// State carries across calls so a stream can be filtered chunk by chunk.
// Not safe for concurrent use.
type DCRemoval struct {
	poleLocation float64 // R parameter (0 < R < 1)

	x1 float64 // x[n-1]
	y1 float64 // y[n-1]
}

// NewDCRemovalWithCutoff creates a DC blocker with an approximate -3dB
// cutoff of cutoffFreq Hz, using R = 1 - 2*pi*fc/fs.
func NewDCRemovalWithCutoff(sampleRate int, cutoffFreq float64) (*DCRemoval, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if cutoffFreq <= 0 || cutoffFreq >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("cutoff %.2f Hz outside (0, %d)", cutoffFreq, sampleRate/2)
	}

	r := 1 - 2*math.Pi*cutoffFreq/float64(sampleRate)
	// very high cutoffs push R past zero; keep the pole inside the unit circle
	r = math.Max(r, 0.01)

	return &DCRemoval{poleLocation: r}, nil
}

// PoleLocation returns R
func (dc *DCRemoval) PoleLocation() float64 {
	return dc.poleLocation
}

// ProcessInPlace filters samples, overwriting them
func (dc *DCRemoval) ProcessInPlace(samples []float64) {
	for i, x := range samples {
		y := x - dc.x1 + dc.poleLocation*dc.y1
		dc.x1 = x
		dc.y1 = y
		samples[i] = y
	}
}

// Reset clears the filter history
func (dc *DCRemoval) Reset() {
	dc.x1 = 0
	dc.y1 = 0
}
