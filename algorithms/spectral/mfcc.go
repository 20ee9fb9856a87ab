package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MFCC computes Mel-Frequency Cepstral Coefficients from one frame's band
// magnitudes. Filter energies are used raw (no logarithm) so coefficients
// stay comparable with previously trained models.
//
// An MFCC is read-only after construction and safe for concurrent use.
type MFCC struct {
	bank *FilterBank

	// cosine[m][l] = cos(m*pi/numFilters * (l+0.5))
	cosine [][]float64
}

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	SampleRate      int `json:"sample_rate" yaml:"sample_rate"`           // Sampling rate in Hz (default: 44100)
	NumFilters      int `json:"num_filters" yaml:"num_filters"`           // Mel filters (default: 48)
	NumCoefficients int `json:"num_coefficients" yaml:"num_coefficients"` // Requested coefficients, clamped to NumFilters-1 (default: 12)
	BinSize         int `json:"bin_size" yaml:"bin_size"`                 // Spectrum length, frameLength/2+1
}

// DefaultMFCCParams returns the parameters used for 1024-sample frames at 44.1 kHz
func DefaultMFCCParams() MFCCParams {
	return MFCCParams{
		SampleRate:      44100,
		NumFilters:      48,
		NumCoefficients: 12,
		BinSize:         BinSizeForFrame(1024),
	}
}

// BinSizeForFrame returns the number of magnitude bins a frame of frameLength samples yields
func BinSizeForFrame(frameLength int) int {
	return frameLength/2 + 1
}

// NewMFCC builds the filter bank and cosine table once for the given parameters
func NewMFCC(params MFCCParams) (*MFCC, error) {
	bank, err := BuildFilterBank(params.SampleRate, params.NumFilters, params.BinSize, params.NumCoefficients)
	if err != nil {
		return nil, fmt.Errorf("failed to build mel filter bank: %w", err)
	}

	mfcc := &MFCC{bank: bank}
	mfcc.createCosineTable()
	return mfcc, nil
}

func (mfcc *MFCC) createCosineTable() {
	numFilters := mfcc.bank.NumFilters
	mfcc.cosine = make([][]float64, mfcc.bank.NumCoefficients)

	for m := range mfcc.cosine {
		row := make([]float64, numFilters)
		for l := range row {
			row[l] = math.Cos((float64(m) * math.Pi / float64(numFilters)) * (float64(l) + 0.5))
		}
		mfcc.cosine[m] = row
	}
}

// Compute returns the cepstral coefficients for one frame.
// bandMagnitudes must hold exactly BinSize values.
func (mfcc *MFCC) Compute(bandMagnitudes []float64) ([]float64, error) {
	if len(bandMagnitudes) != mfcc.bank.BinSize {
		return nil, fmt.Errorf("%w: got %d values, filter bank expects %d",
			ErrSizeMismatch, len(bandMagnitudes), mfcc.bank.BinSize)
	}

	return mfcc.applyDCT(mfcc.FilterEnergies(bandMagnitudes)), nil
}

// FilterEnergies accumulates the absolute band magnitudes under each filter.
// The caller guarantees len(bandMagnitudes) == BinSize.
func (mfcc *MFCC) FilterEnergies(bandMagnitudes []float64) []float64 {
	rectified := make([]float64, len(bandMagnitudes))
	for k, v := range bandMagnitudes {
		rectified[k] = math.Abs(v)
	}

	energies := make([]float64, mfcc.bank.NumFilters)
	for l, weights := range mfcc.bank.Weights {
		energies[l] = floats.Dot(rectified, weights)
	}
	return energies
}

func (mfcc *MFCC) applyDCT(energies []float64) []float64 {
	coeffs := make([]float64, mfcc.bank.NumCoefficients)

	for m, row := range mfcc.cosine {
		coeffs[m] = floats.Dot(energies, row) * mfcc.bank.Normalization[m]
	}

	return coeffs
}

// NumCoefficients returns the effective (clamped) coefficient count
func (mfcc *MFCC) NumCoefficients() int {
	return mfcc.bank.NumCoefficients
}

// BinSize returns the magnitude vector length Compute accepts
func (mfcc *MFCC) BinSize() int {
	return mfcc.bank.BinSize
}

// FilterBank returns the precomputed bank. Callers must not modify it.
func (mfcc *MFCC) FilterBank() *FilterBank {
	return mfcc.bank
}
