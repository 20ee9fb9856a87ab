package common

import (
	"math"
)

// Interpolator provides linear interpolation over uniformly sampled data
type Interpolator struct{}

// NewInterpolator creates a new interpolator
func NewInterpolator() *Interpolator {
	return &Interpolator{}
}

// Interpolate returns data at a fractional index, clamped to the ends
func (interp *Interpolator) Interpolate(data []float64, index float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	if index <= 0 {
		return data[0]
	}
	if index >= float64(len(data)-1) {
		return data[len(data)-1]
	}

	i := int(index)
	frac := index - float64(i)

	return data[i]*(1-frac) + data[i+1]*frac
}

// InterpolateArray resamples an entire array to a new length
func (interp *Interpolator) InterpolateArray(data []float64, newLength int) []float64 {
	if len(data) == 0 || newLength <= 0 {
		return []float64{}
	}

	result := make([]float64, newLength)
	if newLength == 1 {
		result[0] = data[0]
		return result
	}

	ratio := float64(len(data)-1) / float64(newLength-1)
	for i := range result {
		result[i] = interp.Interpolate(data, float64(i)*ratio)
	}

	return result
}

// LinearBands groups a magnitude spectrum into numBands equal-width bands
// between minFreq and maxFreq. spectrum[k] is taken to sit at
// k*nyquist/(len(spectrum)-1) Hz. A band covering at least one bin reports
// the mean of those bins; a band narrower than the bin spacing reports the
// spectrum interpolated at its center.
func (interp *Interpolator) LinearBands(spectrum []float64, nyquist, minFreq, maxFreq float64, numBands int) []float64 {
	if len(spectrum) < 2 || numBands <= 0 || nyquist <= 0 || maxFreq <= minFreq {
		return []float64{}
	}

	binWidth := nyquist / float64(len(spectrum)-1)
	bandWidth := (maxFreq - minFreq) / float64(numBands)
	bands := make([]float64, numBands)

	for b := range bands {
		lo := minFreq + float64(b)*bandWidth
		hi := lo + bandWidth

		first := int(math.Ceil(lo / binWidth))
		last := int(math.Ceil(hi/binWidth)) - 1
		first = max(first, 0)
		last = min(last, len(spectrum)-1)

		if last >= first {
			sum := 0.0
			for k := first; k <= last; k++ {
				sum += spectrum[k]
			}
			bands[b] = sum / float64(last-first+1)
			continue
		}

		bands[b] = interp.Interpolate(spectrum, (lo+hi)/2/binWidth)
	}

	return bands
}
