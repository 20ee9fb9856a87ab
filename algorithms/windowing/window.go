package windowing

import (
	"fmt"
	"math"
	"strings"
)

// Type names a window function
type Type string

const (
	Hann        Type = "hann"
	Hamming     Type = "hamming"
	Blackman    Type = "blackman"
	Rectangular Type = "rectangular"
)

// Window holds precomputed coefficients for one window size.
// Coefficients are generated periodic (denominator = size) unless symmetric
// is requested, which suits frames fed straight into an FFT.
type Window struct {
	kind         Type
	size         int
	symmetric    bool
	coefficients []float64
}

// ParseType converts a configuration string into a window Type
func ParseType(name string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(name))); t {
	case Hann, Hamming, Blackman, Rectangular:
		return t, nil
	case "hanning":
		return Hann, nil
	default:
		return "", fmt.Errorf("unknown window type: %q", name)
	}
}

// New creates a window of the given type and size
func New(kind Type, size int, symmetric bool) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	w := &Window{
		kind:         kind,
		size:         size,
		symmetric:    symmetric,
		coefficients: make([]float64, size),
	}

	denominator := float64(size)
	if symmetric && size > 1 {
		denominator = float64(size - 1)
	}

	for i := range size {
		x := 2 * math.Pi * float64(i) / denominator
		switch kind {
		case Hann:
			w.coefficients[i] = 0.5 * (1.0 - math.Cos(x))
		case Hamming:
			w.coefficients[i] = 0.54 - 0.46*math.Cos(x)
		case Blackman:
			w.coefficients[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
		case Rectangular:
			w.coefficients[i] = 1.0
		default:
			return nil, fmt.Errorf("unknown window type: %q", kind)
		}
	}

	return w, nil
}

// Apply applies the window to a signal (creates new array)
func (w *Window) Apply(signal []float64) ([]float64, error) {
	if len(signal) != w.size {
		return nil, fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	windowed := make([]float64, w.size)
	for i, v := range signal {
		windowed[i] = v * w.coefficients[i]
	}

	return windowed, nil
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i := range signal {
		signal[i] *= w.coefficients[i]
	}

	return nil
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// Size returns the window size
func (w *Window) Size() int {
	return w.size
}

// Type returns the window type
func (w *Window) Type() Type {
	return w.kind
}
