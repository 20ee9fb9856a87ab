package spectral

import (
	"math"
)

// Mel band layout: bands 1..linearBands are spaced linearly below ~1 kHz,
// bands above follow a geometric progression.
const (
	linearBands      = 14
	linearBandStep   = 200.0 / 3.0
	exponentialBase  = 1073.4
	exponentialRatio = 1.0711703
	linearBandGain   = 0.015
)

// FilterBank holds the precomputed triangular Mel filters and the DCT
// normalization factors for one configuration. It is immutable after
// BuildFilterBank returns.
type FilterBank struct {
	SampleRate      int
	NumFilters      int
	BinSize         int
	NumCoefficients int

	// Weights is NumFilters rows of BinSize weights
	Weights [][]float64

	// Normalization is one scale factor per cepstral coefficient
	Normalization []float64
}

// CenterFrequency returns the center frequency in Hz of a Mel band.
// Band 0 is the DC anchor used as the lower edge of the first filter.
func CenterFrequency(band int) float64 {
	switch {
	case band <= 0:
		return 0
	case band <= linearBands:
		return linearBandStep * float64(band)
	default:
		return exponentialBase * math.Pow(exponentialRatio, float64(band-linearBands))
	}
}

// MagnitudeFactor returns the peak gain of filter band.
// Linear bands share a constant gain; exponential bands are area normalized.
func MagnitudeFactor(band, numFilters int) float64 {
	switch {
	case band >= 1 && band <= linearBands:
		return linearBandGain
	case band > linearBands && band <= numFilters:
		return 2.0 / (CenterFrequency(band+1) - CenterFrequency(band-1))
	default:
		return 0
	}
}

// NormalizationFactor returns the orthonormal DCT-II scale for coefficient m
func NormalizationFactor(m, numFilters int) float64 {
	if m == 0 {
		return math.Sqrt(1.0 / float64(numFilters))
	}
	return math.Sqrt(2.0 / float64(numFilters))
}

// BuildFilterBank precomputes the filter weights and normalization vector.
// numCoeffs is clamped to numFilters-1.
func BuildFilterBank(sampleRate, numFilters, binSize, numCoeffs int) (*FilterBank, error) {
	if sampleRate <= 0 {
		return nil, &ConfigurationError{Param: "sample rate", Value: sampleRate}
	}
	if numFilters <= 0 {
		return nil, &ConfigurationError{Param: "filter count", Value: numFilters}
	}
	if binSize <= 0 {
		return nil, &ConfigurationError{Param: "bin size", Value: binSize}
	}
	if numCoeffs <= 0 {
		return nil, &ConfigurationError{Param: "coefficient count", Value: numCoeffs}
	}

	numCoeffs = min(numCoeffs, numFilters-1)
	if numCoeffs <= 0 {
		// a single filter leaves no room for a coefficient after clamping
		return nil, &ConfigurationError{Param: "coefficient count after clamping", Value: numCoeffs}
	}

	fb := &FilterBank{
		SampleRate:      sampleRate,
		NumFilters:      numFilters,
		BinSize:         binSize,
		NumCoefficients: numCoeffs,
		Weights:         make([][]float64, numFilters),
		Normalization:   make([]float64, numCoeffs),
	}

	for m := range numCoeffs {
		fb.Normalization[m] = NormalizationFactor(m, numFilters)
	}

	for i := range numFilters {
		band := i + 1
		row := make([]float64, binSize)
		for k := range binSize {
			row[k] = filterWeight(k, band, sampleRate, binSize, numFilters)
		}
		fb.Weights[i] = row
	}

	return fb, nil
}

// binBoundary maps bin k to its frequency boundary. The product is divided
// as integers before conversion, so boundaries land on whole Hz.
func binBoundary(k, sampleRate, binSize int) float64 {
	return float64((k * sampleRate) / binSize)
}

// filterWeight evaluates one triangular filter at one bin. Both ramps divide
// by (this - prev); the falling edge is therefore steeper or shallower than
// the rising one whenever the band spacing is uneven. Trained models depend
// on this exact shape.
func filterWeight(k, band, sampleRate, binSize, numFilters int) float64 {
	boundary := binBoundary(k, sampleRate, binSize)
	prev := CenterFrequency(band - 1)
	this := CenterFrequency(band)
	next := CenterFrequency(band + 1)

	span := this - prev
	if span <= 0 {
		return 0
	}

	switch {
	case boundary < prev:
		return 0
	case boundary < this:
		return (boundary - prev) / span * MagnitudeFactor(band, numFilters)
	case boundary < next:
		return (next - boundary) / span * MagnitudeFactor(band, numFilters)
	default:
		return 0
	}
}

// Support returns the half-open frequency interval [lo, hi) outside of which
// filter band has zero weight.
func (fb *FilterBank) Support(band int) (lo, hi float64) {
	return CenterFrequency(band - 1), CenterFrequency(band + 1)
}

// BinFrequency returns the frequency boundary used for bin k
func (fb *FilterBank) BinFrequency(k int) float64 {
	return binBoundary(k, fb.SampleRate, fb.BinSize)
}
