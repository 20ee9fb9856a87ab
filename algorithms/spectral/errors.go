package spectral

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is wrapped by every ConfigurationError
	ErrInvalidConfiguration = errors.New("invalid filter bank configuration")

	// ErrSizeMismatch is returned when a band magnitude vector does not match the bin count
	ErrSizeMismatch = errors.New("band magnitude length mismatch")
)

// ConfigurationError reports a filter bank parameter that cannot produce a usable bank
type ConfigurationError struct {
	Param string
	Value int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s must be positive, got %d", ErrInvalidConfiguration, e.Param, e.Value)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}
