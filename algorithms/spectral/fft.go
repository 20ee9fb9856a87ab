package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp for real-valued frames
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the Fast Fourier Transform of a real signal.
// go-dsp handles all sizes, including non-power-of-2.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// MagnitudeSpectrum returns |X[k]| for the non-negative frequencies
// (len(x)/2+1 bins, DC through Nyquist), scaled by 2/len(x) so a full-scale
// sine reads close to 1.
func (f *FFT) MagnitudeSpectrum(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	spectrum := f.Compute(x)
	bins := BinSizeForFrame(len(x))
	scale := 2.0 / float64(len(x))

	magnitudes := make([]float64, bins)
	for k := range bins {
		magnitudes[k] = cmplx.Abs(spectrum[k]) * scale
	}

	return magnitudes
}
